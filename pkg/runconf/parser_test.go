package runconf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `# SuperTransformer training on wmt14.en-de
train-subtransformer: False
arch: transformersuper_wmt_en_de
data: data/binary/wmt16_en_de

optimizer: adam
adam-betas: '(0.9, 0.98)'
clip-norm: 0.0
warmup-init-lr: 1e-07
max-tokens: 4096
update-freq: [16]
fp16: True

# search space
qkv-dim: 512
encoder-embed-choice: [640, 512]
decoder-layer-num-choice: [6, 5, 4, 3, 2, 1]
`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	arch, ok := doc.Lookup("arch")
	require.True(t, ok)
	assert.Equal(t, "transformersuper_wmt_en_de", arch.Str())

	maxTokens, err := doc.Get("max-tokens").Int()
	require.NoError(t, err)
	assert.Equal(t, 4096, maxTokens)

	warmup, err := doc.Get("warmup-init-lr").Float()
	require.NoError(t, err)
	assert.InDelta(t, 1e-07, warmup, 1e-12)

	fp16, err := doc.Get("fp16").Bool()
	require.NoError(t, err)
	assert.True(t, fp16)

	sub, err := doc.Get("train-subtransformer").Bool()
	require.NoError(t, err)
	assert.False(t, sub)

	embeds, err := doc.Get("encoder-embed-choice").Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{640, 512}, embeds)

	layers, err := doc.Get("decoder-layer-num-choice").Ints()
	require.NoError(t, err)
	assert.Len(t, layers, 6)

	assert.False(t, doc.Has("no-such-option"))
}

func TestParseQuotedValue(t *testing.T) {
	doc, err := Parse(strings.NewReader("adam-betas: '(0.9, 0.98)'\n"))
	require.NoError(t, err)
	assert.Equal(t, "(0.9, 0.98)", doc.Get("adam-betas").Str())
}

func TestParseBareFlag(t *testing.T) {
	doc, err := Parse(strings.NewReader("latcpu\n"))
	require.NoError(t, err)

	v, ok := doc.Lookup("latcpu")
	require.True(t, ok)
	assert.True(t, v.IsFlag())

	b, err := v.Bool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestParseDuplicateLastWins(t *testing.T) {
	doc, err := Parse(strings.NewReader("max-tokens: 4096\nmax-tokens: 2048\n"))
	require.NoError(t, err)

	n, err := doc.Get("max-tokens").Int()
	require.NoError(t, err)
	assert.Equal(t, 2048, n)

	// both lines survive in the document
	assert.Len(t, doc.Entries, 2)
	assert.Equal(t, []string{"max-tokens"}, doc.Keys())
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		line  int
	}{
		{"unterminated list", "lr: [0.001, 0.0001\n", 1},
		{"missing value", "data:\n", 1},
		{"missing key", ": 42\n", 1},
		{"bad bare line", "# fine\nnot a config line\n", 2},
		{"empty list element", "update-freq: [16,, 8]\n", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.line, perr.LineNumber)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	reparsed, err := Parse(strings.NewReader(doc.String()))
	require.NoError(t, err)

	assert.Equal(t, doc.Keys(), reparsed.Keys())
	for _, key := range doc.Keys() {
		assert.Equal(t, doc.Get(key).String(), reparsed.Get(key).String(), key)
	}

	// comment lines survive encoding
	assert.Contains(t, doc.String(), "# search space")
}

func TestSet(t *testing.T) {
	doc, err := Parse(strings.NewReader("max-tokens: 4096\n"))
	require.NoError(t, err)

	doc.Set("max-tokens", IntValue(2048))
	doc.Set("seed", IntValue(7))

	n, err := doc.Get("max-tokens").Int()
	require.NoError(t, err)
	assert.Equal(t, 2048, n)

	seed, err := doc.Get("seed").Int()
	require.NoError(t, err)
	assert.Equal(t, 7, seed)
}

func TestFingerprint(t *testing.T) {
	a, err := Parse(strings.NewReader("max-tokens: 4096\nseed: 1\n"))
	require.NoError(t, err)

	// same options, different order and an overridden duplicate
	b, err := Parse(strings.NewReader("# comment\nseed: 2\nseed: 1\nmax-tokens: 4096\n"))
	require.NoError(t, err)

	c, err := Parse(strings.NewReader("max-tokens: 2048\nseed: 1\n"))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestParseBetas(t *testing.T) {
	b1, b2, err := ParseBetas("'(0.9, 0.98)'")
	require.NoError(t, err)
	assert.Equal(t, 0.9, b1)
	assert.Equal(t, 0.98, b2)

	_, _, err = ParseBetas("0.9, 0.98")
	require.Error(t, err)

	_, _, err = ParseBetas("(0.9)")
	require.Error(t, err)
}
