package space

import (
	"fmt"
	"strings"

	"github.com/hatlab/hatctl/pkg/runconf"
)

// Arch is one SubTransformer: a concrete choice for every dimension of the
// space. Per-layer slices have exactly layer-num entries.
type Arch struct {
	EncoderEmbedDim int
	DecoderEmbedDim int
	EncoderLayerNum int
	DecoderLayerNum int

	EncoderFFNEmbedDim   []int
	EncoderSelfAttnHeads []int

	DecoderFFNEmbedDim       []int
	DecoderSelfAttnHeads     []int
	DecoderEndeHeads         []int
	DecoderArbitraryEndeAttn []int
}

// ArchFromConfig extracts the SubTransformer pinned by a run configuration.
// The second return is false when the configuration sets no SubTransformer
// options at all.
func ArchFromConfig(cfg *runconf.RunConfig) (*Arch, bool) {
	if !cfg.HasSubTransformer() {
		return nil, false
	}
	sub := cfg.Sub
	return &Arch{
		EncoderEmbedDim:          sub.EncoderEmbedDim,
		DecoderEmbedDim:          sub.DecoderEmbedDim,
		EncoderLayerNum:          sub.EncoderLayerNum,
		DecoderLayerNum:          sub.DecoderLayerNum,
		EncoderFFNEmbedDim:       sub.EncoderFFNEmbedDims,
		EncoderSelfAttnHeads:     sub.EncoderSelfAttnHeads,
		DecoderFFNEmbedDim:       sub.DecoderFFNEmbedDims,
		DecoderSelfAttnHeads:     sub.DecoderSelfAttnHeads,
		DecoderEndeHeads:         sub.DecoderEndeAttnHeads,
		DecoderArbitraryEndeAttn: sub.DecoderArbitraryEndeAttn,
	}, true
}

// Key is a compact canonical encoding of the architecture, used for
// deduplication during sampling and as the tracked arch summary.
func (a *Arch) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "e%d-%d:", a.EncoderEmbedDim, a.EncoderLayerNum)
	writeList(&sb, a.EncoderFFNEmbedDim)
	writeList(&sb, a.EncoderSelfAttnHeads)
	fmt.Fprintf(&sb, "|d%d-%d:", a.DecoderEmbedDim, a.DecoderLayerNum)
	writeList(&sb, a.DecoderFFNEmbedDim)
	writeList(&sb, a.DecoderSelfAttnHeads)
	writeList(&sb, a.DecoderEndeHeads)
	writeList(&sb, a.DecoderArbitraryEndeAttn)
	return sb.String()
}

func writeList(sb *strings.Builder, vs []int) {
	sb.WriteByte(';')
	for i, v := range vs {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(sb, "%d", v)
	}
}

// ParamCount estimates the number of weights of the SubTransformer,
// excluding embedding tables, the same way the trainer reports model size
// "without embedding weights". Attention projects to qkvDim regardless of
// the head count, so only dims and layer counts matter.
func (a *Arch) ParamCount(qkvDim int) (int64, error) {
	if len(a.EncoderFFNEmbedDim) < a.EncoderLayerNum || len(a.DecoderFFNEmbedDim) < a.DecoderLayerNum {
		return 0, fmt.Errorf("per-layer ffn dims are missing entries")
	}
	q := int64(qkvDim)
	e := int64(a.EncoderEmbedDim)
	d := int64(a.DecoderEmbedDim)

	var total int64
	for i := 0; i < a.EncoderLayerNum; i++ {
		f := int64(a.EncoderFFNEmbedDim[i])
		attn := 3*(e*q+q) + (q*e + e)
		ffn := e*f + f + f*e + e
		norms := 2 * (2 * e)
		total += attn + ffn + norms
	}
	for i := 0; i < a.DecoderLayerNum; i++ {
		f := int64(a.DecoderFFNEmbedDim[i])
		selfAttn := 3*(d*q+q) + (q*d + d)
		// ende attention: query from the decoder, key/value from the encoder
		endeAttn := (d*q + q) + 2*(e*q+q) + (q*d + d)
		ffn := d*f + f + f*d + d
		norms := 3 * (2 * d)
		total += selfAttn + endeAttn + ffn + norms
	}
	return total, nil
}
