// Package space models the discrete search space a SuperTransformer spans
// and the SubTransformer architectures sampled from it.
package space

import (
	"fmt"
	"math"

	"github.com/hatlab/hatctl/pkg/runconf"
)

// Space holds the candidate choices for every architectural dimension.
// The qkv dim is fixed across the space: attention is always projected to
// the same width, so changing the head count never changes weight shapes.
type Space struct {
	QKVDim int

	EncoderEmbed    []int
	EncoderFFNEmbed []int
	EncoderLayerNum []int
	EncoderHeads    []int

	DecoderEmbed             []int
	DecoderFFNEmbed          []int
	DecoderLayerNum          []int
	DecoderHeads             []int
	DecoderEndeHeads         []int
	DecoderArbitraryEndeAttn []int
}

// FromConfig builds the search space out of the SuperTransformer choice
// options of a run configuration.
func FromConfig(cfg *runconf.RunConfig) *Space {
	s := cfg.Super
	return &Space{
		QKVDim:                   s.QKVDim,
		EncoderEmbed:             s.EncoderEmbedChoice,
		EncoderFFNEmbed:          s.EncoderFFNEmbedChoice,
		EncoderLayerNum:          s.EncoderLayerNumChoice,
		EncoderHeads:             s.EncoderSelfAttnHeadsChoice,
		DecoderEmbed:             s.DecoderEmbedChoice,
		DecoderFFNEmbed:          s.DecoderFFNEmbedChoice,
		DecoderLayerNum:          s.DecoderLayerNumChoice,
		DecoderHeads:             s.DecoderSelfAttnHeadsChoice,
		DecoderEndeHeads:         s.DecoderEndeAttnHeadsChoice,
		DecoderArbitraryEndeAttn: s.DecoderArbitraryEndeAttnChoice,
	}
}

// Validate checks the space for internal consistency.
func (s *Space) Validate() error {
	if s.QKVDim <= 0 {
		return fmt.Errorf("qkv-dim must be positive, got %d", s.QKVDim)
	}

	dims := []struct {
		name    string
		choices []int
	}{
		{"encoder-embed-choice", s.EncoderEmbed},
		{"encoder-ffn-embed-dim-choice", s.EncoderFFNEmbed},
		{"encoder-layer-num-choice", s.EncoderLayerNum},
		{"encoder-self-attention-heads-choice", s.EncoderHeads},
		{"decoder-embed-choice", s.DecoderEmbed},
		{"decoder-ffn-embed-dim-choice", s.DecoderFFNEmbed},
		{"decoder-layer-num-choice", s.DecoderLayerNum},
		{"decoder-self-attention-heads-choice", s.DecoderHeads},
		{"decoder-ende-attention-heads-choice", s.DecoderEndeHeads},
	}
	for _, d := range dims {
		if len(d.choices) == 0 {
			return fmt.Errorf("%s has no candidates", d.name)
		}
		for _, c := range d.choices {
			if c <= 0 {
				return fmt.Errorf("%s has non-positive candidate %d", d.name, c)
			}
		}
	}

	for _, h := range s.EncoderHeads {
		if s.QKVDim%h != 0 {
			return fmt.Errorf("encoder head candidate %d does not divide qkv-dim %d", h, s.QKVDim)
		}
	}
	for _, h := range s.DecoderHeads {
		if s.QKVDim%h != 0 {
			return fmt.Errorf("decoder head candidate %d does not divide qkv-dim %d", h, s.QKVDim)
		}
	}
	for _, h := range s.DecoderEndeHeads {
		if s.QKVDim%h != 0 {
			return fmt.Errorf("ende head candidate %d does not divide qkv-dim %d", h, s.QKVDim)
		}
	}

	if len(s.DecoderArbitraryEndeAttn) == 0 {
		return fmt.Errorf("decoder-arbitrary-ende-attn-choice has no candidates")
	}
	for _, a := range s.DecoderArbitraryEndeAttn {
		if a != -1 && a != 1 && a != 2 {
			return fmt.Errorf("decoder-arbitrary-ende-attn candidate %d is not one of -1, 1, 2", a)
		}
	}

	return nil
}

// Contains checks that an architecture is a member of the space: layer
// counts within bounds, per-layer lists of the right length, and every
// value drawn from the corresponding candidate list.
func (s *Space) Contains(a *Arch) error {
	if !in(s.EncoderEmbed, a.EncoderEmbedDim) {
		return fmt.Errorf("encoder embed dim %d is not a candidate %v", a.EncoderEmbedDim, s.EncoderEmbed)
	}
	if !in(s.DecoderEmbed, a.DecoderEmbedDim) {
		return fmt.Errorf("decoder embed dim %d is not a candidate %v", a.DecoderEmbedDim, s.DecoderEmbed)
	}
	if !in(s.EncoderLayerNum, a.EncoderLayerNum) {
		return fmt.Errorf("encoder layer count %d is not a candidate %v", a.EncoderLayerNum, s.EncoderLayerNum)
	}
	if !in(s.DecoderLayerNum, a.DecoderLayerNum) {
		return fmt.Errorf("decoder layer count %d is not a candidate %v", a.DecoderLayerNum, s.DecoderLayerNum)
	}

	perLayer := []struct {
		name    string
		values  []int
		length  int
		choices []int
	}{
		{"encoder ffn dims", a.EncoderFFNEmbedDim, a.EncoderLayerNum, s.EncoderFFNEmbed},
		{"encoder self-attention heads", a.EncoderSelfAttnHeads, a.EncoderLayerNum, s.EncoderHeads},
		{"decoder ffn dims", a.DecoderFFNEmbedDim, a.DecoderLayerNum, s.DecoderFFNEmbed},
		{"decoder self-attention heads", a.DecoderSelfAttnHeads, a.DecoderLayerNum, s.DecoderHeads},
		{"decoder ende-attention heads", a.DecoderEndeHeads, a.DecoderLayerNum, s.DecoderEndeHeads},
		{"decoder arbitrary ende-attn", a.DecoderArbitraryEndeAttn, a.DecoderLayerNum, s.DecoderArbitraryEndeAttn},
	}
	for _, p := range perLayer {
		if len(p.values) != p.length {
			return fmt.Errorf("%s has %d entries for %d layers", p.name, len(p.values), p.length)
		}
		for i, v := range p.values {
			if !in(p.choices, v) {
				return fmt.Errorf("%s layer %d value %d is not a candidate %v", p.name, i, v, p.choices)
			}
		}
	}

	return nil
}

// Cardinality returns the number of distinct SubTransformers in the space,
// saturating at MaxUint64.
func (s *Space) Cardinality() uint64 {
	encoder := sideCardinality(s.EncoderEmbed, s.EncoderLayerNum,
		uint64(len(s.EncoderFFNEmbed))*uint64(len(s.EncoderHeads)))

	perLayer := satMul(uint64(len(s.DecoderFFNEmbed)), uint64(len(s.DecoderHeads)))
	perLayer = satMul(perLayer, uint64(len(s.DecoderEndeHeads)))
	perLayer = satMul(perLayer, uint64(len(s.DecoderArbitraryEndeAttn)))
	decoder := sideCardinality(s.DecoderEmbed, s.DecoderLayerNum, perLayer)

	return satMul(encoder, decoder)
}

func sideCardinality(embed, layerNums []int, perLayer uint64) uint64 {
	var total uint64
	for _, l := range layerNums {
		total = satAdd(total, satPow(perLayer, l))
	}
	return satMul(total, uint64(len(embed)))
}

func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satPow(base uint64, exp int) uint64 {
	out := uint64(1)
	for i := 0; i < exp; i++ {
		out = satMul(out, base)
	}
	return out
}

// Largest returns the biggest SubTransformer in the space, the counterpart
// of the full SuperTransformer. The space must pass Validate first: a
// dimension with no candidates makes the corners panic.
func (s *Space) Largest() *Arch {
	return s.corner(maxOf)
}

// Smallest returns the smallest SubTransformer in the space. Like Largest,
// it requires a space that passes Validate.
func (s *Space) Smallest() *Arch {
	return s.corner(minOf)
}

func (s *Space) corner(pick func([]int) int) *Arch {
	encLayers := pick(s.EncoderLayerNum)
	decLayers := pick(s.DecoderLayerNum)
	return &Arch{
		EncoderEmbedDim:          pick(s.EncoderEmbed),
		DecoderEmbedDim:          pick(s.DecoderEmbed),
		EncoderLayerNum:          encLayers,
		DecoderLayerNum:          decLayers,
		EncoderFFNEmbedDim:       repeat(pick(s.EncoderFFNEmbed), encLayers),
		EncoderSelfAttnHeads:     repeat(pick(s.EncoderHeads), encLayers),
		DecoderFFNEmbedDim:       repeat(pick(s.DecoderFFNEmbed), decLayers),
		DecoderSelfAttnHeads:     repeat(pick(s.DecoderHeads), decLayers),
		DecoderEndeHeads:         repeat(pick(s.DecoderEndeHeads), decLayers),
		DecoderArbitraryEndeAttn: repeat(pick(s.DecoderArbitraryEndeAttn), decLayers),
	}
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func maxOf(vs []int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func in(choices []int, v int) bool {
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}
