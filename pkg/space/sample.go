package space

import (
	"fmt"
	"math/rand"
)

// Sample draws a uniform SubTransformer from the space. The draw order is
// fixed (encoder layer count, embed dim, per-layer choices, then the
// decoder side) so a given rng state always yields the same architecture.
func (s *Space) Sample(rng *rand.Rand) *Arch {
	pick := func(choices []int) int {
		return choices[rng.Intn(len(choices))]
	}
	perLayer := func(choices []int, layers int) []int {
		out := make([]int, layers)
		for i := range out {
			out[i] = pick(choices)
		}
		return out
	}

	a := &Arch{}
	a.EncoderLayerNum = pick(s.EncoderLayerNum)
	a.EncoderEmbedDim = pick(s.EncoderEmbed)
	a.EncoderFFNEmbedDim = perLayer(s.EncoderFFNEmbed, a.EncoderLayerNum)
	a.EncoderSelfAttnHeads = perLayer(s.EncoderHeads, a.EncoderLayerNum)

	a.DecoderLayerNum = pick(s.DecoderLayerNum)
	a.DecoderEmbedDim = pick(s.DecoderEmbed)
	a.DecoderFFNEmbedDim = perLayer(s.DecoderFFNEmbed, a.DecoderLayerNum)
	a.DecoderSelfAttnHeads = perLayer(s.DecoderHeads, a.DecoderLayerNum)
	a.DecoderEndeHeads = perLayer(s.DecoderEndeHeads, a.DecoderLayerNum)
	a.DecoderArbitraryEndeAttn = perLayer(s.DecoderArbitraryEndeAttn, a.DecoderLayerNum)

	return a
}

// SampleSeeded samples with a fresh seeded source, the way the trainer
// reseeds per update number to make sampling reproducible.
func (s *Space) SampleSeeded(seed int64) *Arch {
	return s.Sample(rand.New(rand.NewSource(seed)))
}

// SampleUnique draws n distinct SubTransformers, deduplicating by Arch.Key.
func (s *Space) SampleUnique(n int, seed int64) ([]*Arch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}
	if card := s.Cardinality(); card < uint64(n) {
		return nil, fmt.Errorf("space holds only %d architectures, cannot sample %d unique ones", card, n)
	}

	rng := rand.New(rand.NewSource(seed))
	seen := make(map[string]bool, n)
	archs := make([]*Arch, 0, n)
	for len(archs) < n {
		a := s.Sample(rng)
		key := a.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		archs = append(archs, a)
	}
	return archs, nil
}
