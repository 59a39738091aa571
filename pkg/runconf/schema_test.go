package runconf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subTransformerConfig = `data: data/binary/wmt16_en_de
arch: transformersuper_wmt_en_de
train-subtransformer: True
max-tokens: 4096
lr: [0.001]
lr-scheduler: cosine
max-update: 40000

qkv-dim: 512
encoder-embed-choice: [640, 512]
decoder-embed-choice: [640, 512]
encoder-ffn-embed-dim-choice: [3072, 2048]
decoder-ffn-embed-dim-choice: [3072, 2048]
encoder-layer-num-choice: [6]
decoder-layer-num-choice: [6, 5, 4, 3, 2, 1]
encoder-self-attention-heads-choice: [8, 4]
decoder-self-attention-heads-choice: [8, 4]
decoder-ende-attention-heads-choice: [8, 4]
decoder-arbitrary-ende-attn-choice: [-1, 1, 2]

encoder-embed-dim-subtransformer: 640
decoder-embed-dim-subtransformer: 512
encoder-layer-num-subtransformer: 6
decoder-layer-num-subtransformer: 3
encoder-ffn-embed-dim-all-subtransformer: [3072, 3072, 3072, 2048, 2048, 2048]
decoder-ffn-embed-dim-all-subtransformer: [3072, 3072, 2048]
encoder-self-attention-heads-all-subtransformer: [8, 8, 8, 8, 4, 4]
decoder-self-attention-heads-all-subtransformer: [8, 8, 4]
decoder-ende-attention-heads-all-subtransformer: [8, 8, 4]
decoder-arbitrary-ende-attn-all-subtransformer: [-1, 1, 2]
`

func TestDecode(t *testing.T) {
	doc, err := Parse(strings.NewReader(subTransformerConfig))
	require.NoError(t, err)

	cfg, issues := Decode(doc)
	assert.Empty(t, issues)
	assert.Empty(t, cfg.UnknownKeys)

	assert.Equal(t, "transformersuper_wmt_en_de", cfg.Task.Arch)
	assert.True(t, cfg.Task.TrainSubtransformer)
	assert.Equal(t, 4096, cfg.Dataset.MaxTokens)
	assert.Equal(t, []float64{0.001}, cfg.Optimization.LR)
	assert.Equal(t, "cosine", cfg.Optimization.LRScheduler)
	assert.Equal(t, 40000, cfg.Optimization.MaxUpdate)

	assert.Equal(t, 512, cfg.Super.QKVDim)
	assert.Equal(t, []int{640, 512}, cfg.Super.EncoderEmbedChoice)
	assert.Equal(t, []int{-1, 1, 2}, cfg.Super.DecoderArbitraryEndeAttnChoice)

	assert.Equal(t, 640, cfg.Sub.EncoderEmbedDim)
	assert.Equal(t, 3, cfg.Sub.DecoderLayerNum)
	assert.Equal(t, []int{3072, 3072, 2048}, cfg.Sub.DecoderFFNEmbedDims)

	assert.True(t, cfg.Has("max-tokens"))
	assert.False(t, cfg.Has("max-sentences"))
	assert.True(t, cfg.HasSubTransformer())
}

func TestDecodeDefaults(t *testing.T) {
	doc, err := Parse(strings.NewReader("data: data/binary/wmt16_en_de\n"))
	require.NoError(t, err)

	cfg, issues := Decode(doc)
	assert.Empty(t, issues)

	assert.Equal(t, "translation", cfg.Task.Task)
	assert.Equal(t, "adam", cfg.Optimization.Optimizer)
	assert.Equal(t, "valid", cfg.Dataset.ValidSubset)
	assert.Equal(t, 1, cfg.Checkpoint.SaveInterval)
	assert.Equal(t, -1, cfg.Checkpoint.KeepLastEpochs)
	assert.Equal(t, 1, cfg.Distributed.WorldSize)
	assert.Equal(t, 300, cfg.Latency.LatIter)
	assert.False(t, cfg.HasSubTransformer())
}

func TestDecodeUnknownKey(t *testing.T) {
	doc, err := Parse(strings.NewReader("data: d\nfrobnicate-level: 3\n"))
	require.NoError(t, err)

	cfg, issues := Decode(doc)
	assert.Empty(t, issues)
	assert.Equal(t, []string{"frobnicate-level"}, cfg.UnknownKeys)
}

func TestDecodeBadValue(t *testing.T) {
	doc, err := Parse(strings.NewReader("max-tokens: lots\nseed: 3\n"))
	require.NoError(t, err)

	cfg, issues := Decode(doc)
	require.Len(t, issues, 1)
	assert.Equal(t, "max-tokens", issues[0].Key)

	// the bad option keeps its default, the good one decodes
	assert.Equal(t, 0, cfg.Dataset.MaxTokens)
	assert.Equal(t, 3, cfg.Optimization.Seed)
	assert.False(t, cfg.Has("max-tokens"))
}

func TestDecodeScalarAsList(t *testing.T) {
	// a single scalar decodes into a list-valued option
	doc, err := Parse(strings.NewReader("lr: 0.001\nupdate-freq: 16\n"))
	require.NoError(t, err)

	cfg, issues := Decode(doc)
	assert.Empty(t, issues)
	assert.Equal(t, []float64{0.001}, cfg.Optimization.LR)
	assert.Equal(t, []int{16}, cfg.Optimization.UpdateFreq)
}
