package space

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSeededDeterministic(t *testing.T) {
	s := testSpace()

	a := s.SampleSeeded(42)
	b := s.SampleSeeded(42)
	assert.Equal(t, a.Key(), b.Key())

	require.NoError(t, s.Contains(a))
}

func TestSampleWithinSpace(t *testing.T) {
	s := testSpace()
	for seed := int64(0); seed < 50; seed++ {
		arch := s.SampleSeeded(seed)
		require.NoError(t, s.Contains(arch), "seed %d", seed)
	}
}

func TestSampleUnique(t *testing.T) {
	s := testSpace()

	archs, err := s.SampleUnique(20, 1)
	require.NoError(t, err)
	require.Len(t, archs, 20)

	seen := make(map[string]bool)
	for _, a := range archs {
		key := a.Key()
		assert.False(t, seen[key], "duplicate architecture %s", key)
		seen[key] = true
		require.NoError(t, s.Contains(a))
	}
}

func TestSampleUniqueExhaustsSpace(t *testing.T) {
	s := &Space{
		QKVDim:                   512,
		EncoderEmbed:             []int{512},
		EncoderFFNEmbed:          []int{2048},
		EncoderLayerNum:          []int{1},
		EncoderHeads:             []int{8},
		DecoderEmbed:             []int{512},
		DecoderFFNEmbed:          []int{2048},
		DecoderLayerNum:          []int{1},
		DecoderHeads:             []int{8},
		DecoderEndeHeads:         []int{8, 4},
		DecoderArbitraryEndeAttn: []int{-1},
	}
	require.Equal(t, uint64(2), s.Cardinality())

	archs, err := s.SampleUnique(2, 1)
	require.NoError(t, err)
	assert.Len(t, archs, 2)

	_, err = s.SampleUnique(3, 1)
	require.Error(t, err)

	_, err = s.SampleUnique(0, 1)
	require.Error(t, err)
}

func TestArchFileRoundTrip(t *testing.T) {
	s := testSpace()
	arch := s.SampleSeeded(7)

	path := filepath.Join(t.TempDir(), "arch_0.yml")
	require.NoError(t, WriteArchFile(path, arch))

	read, err := ReadArch(path)
	require.NoError(t, err)
	assert.Equal(t, arch.Key(), read.Key())
	assert.Equal(t, arch, read)
}

func TestReadArchRejectsPlainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yml")
	require.NoError(t, os.WriteFile(path, []byte("data: data/binary/wmt16_en_de\nmax-tokens: 4096\n"), 0644))

	_, err := ReadArch(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SubTransformer options")
}
