package checks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanConfig = `data: data/binary/wmt16_en_de
arch: transformersuper_wmt_en_de
max-tokens: 4096
lr: [0.001]
min-lr: 1e-09
max-lr: 0.001
warmup-updates: 4000
adam-betas: '(0.9, 0.98)'
label-smoothing: 0.1
dropout: 0.3
update-freq: [16]

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
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func findingsOf(report *Report, check string) []Finding {
	var out []Finding
	for _, f := range report.Findings {
		if f.Check == check {
			out = append(out, f)
		}
	}
	return out
}

func TestRunFileClean(t *testing.T) {
	engine := NewEngine(nil, "", "paths")
	report := engine.RunFile(writeConfig(t, cleanConfig))

	assert.Equal(t, StatusClean, report.Status, "findings: %v", report.Findings)
	assert.Empty(t, report.Findings)
}

func TestRunFileSyntaxError(t *testing.T) {
	engine := NewEngine(nil, "", "")
	report := engine.RunFile(writeConfig(t, "lr: [0.001\n"))

	assert.Equal(t, StatusFail, report.Status)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "syntax", report.Findings[0].Check)
}

func TestBatchCheck(t *testing.T) {
	engine := NewEngine(nil, "batch", "")

	report := engine.RunFile(writeConfig(t, "data: d\n"))
	assert.Equal(t, StatusFail, report.Status)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Message, "batch size")

	report = engine.RunFile(writeConfig(t, "max-sentences: 64\n"))
	assert.Equal(t, StatusClean, report.Status)

	report = engine.RunFile(writeConfig(t, "max-tokens: -1\n"))
	assert.Equal(t, StatusFail, report.Status)
}

func TestOptimizerCheck(t *testing.T) {
	engine := NewEngine(nil, "optimizer", "")

	report := engine.RunFile(writeConfig(t, "lr: [0.0]\n"))
	assert.NotEmpty(t, findingsOf(report, "optimizer"))

	report = engine.RunFile(writeConfig(t, "min-lr: 0.01\nmax-lr: 0.001\n"))
	assert.NotEmpty(t, findingsOf(report, "optimizer"))

	report = engine.RunFile(writeConfig(t, "adam-betas: '(0.9, 1.5)'\n"))
	assert.NotEmpty(t, findingsOf(report, "optimizer"))

	report = engine.RunFile(writeConfig(t, "lr: [0.001]\nadam-betas: '(0.9, 0.98)'\n"))
	assert.Empty(t, findingsOf(report, "optimizer"))
}

func TestCriterionCheck(t *testing.T) {
	engine := NewEngine(nil, "criterion", "")

	report := engine.RunFile(writeConfig(t, "label-smoothing: 1.2\ndropout: 0.3\n"))
	findings := findingsOf(report, "criterion")
	require.Len(t, findings, 1)
	assert.Equal(t, "label-smoothing", findings[0].Key)

	report = engine.RunFile(writeConfig(t, "criterion: label_smoothed_cross_entropy\n"))
	findings = findingsOf(report, "criterion")
	require.Len(t, findings, 1)
	assert.Equal(t, Warning, findings[0].Severity)
}

func TestCadenceCheck(t *testing.T) {
	engine := NewEngine(nil, "cadence", "")

	report := engine.RunFile(writeConfig(t, `save-interval: 0
validate-interval: 0
update-freq: [0]
distributed-world-size: 0
num-workers: -1
`))
	assert.Equal(t, StatusFail, report.Status)
	assert.Len(t, findingsOf(report, "cadence"), 5)

	report = engine.RunFile(writeConfig(t, "save-interval: 5\nupdate-freq: [16]\nnum-workers: 0\n"))
	assert.Empty(t, report.Findings)
}

func TestPathsCheck(t *testing.T) {
	engine := NewEngine(nil, "paths", "")

	report := engine.RunFile(writeConfig(t, "data: /nonexistent/wmt16_en_de\n"))
	assert.Equal(t, StatusWarn, report.Status)
	findings := findingsOf(report, "paths")
	require.Len(t, findings, 1)
	assert.Equal(t, Warning, findings[0].Severity)
	assert.Equal(t, "data", findings[0].Key)

	report = engine.RunFile(writeConfig(t, "data: "+t.TempDir()+"\n"))
	assert.Empty(t, report.Findings)
}

func TestSubtransformerCheck(t *testing.T) {
	engine := NewEngine(nil, "subtransformer", "")

	inSpace := cleanConfig + `
encoder-embed-dim-subtransformer: 640
decoder-embed-dim-subtransformer: 512
encoder-layer-num-subtransformer: 6
decoder-layer-num-subtransformer: 2
encoder-ffn-embed-dim-all-subtransformer: [3072, 3072, 2048, 2048, 2048, 2048]
decoder-ffn-embed-dim-all-subtransformer: [3072, 2048]
encoder-self-attention-heads-all-subtransformer: [8, 8, 8, 8, 4, 4]
decoder-self-attention-heads-all-subtransformer: [8, 4]
decoder-ende-attention-heads-all-subtransformer: [8, 8]
decoder-arbitrary-ende-attn-all-subtransformer: [-1, 1]
`
	report := engine.RunFile(writeConfig(t, inSpace))
	assert.Equal(t, StatusClean, report.Status, "findings: %v", report.Findings)

	// decoder layer count exceeds every candidate
	outOfSpace := cleanConfig + `
encoder-embed-dim-subtransformer: 640
decoder-embed-dim-subtransformer: 512
encoder-layer-num-subtransformer: 6
decoder-layer-num-subtransformer: 7
encoder-ffn-embed-dim-all-subtransformer: [3072, 3072, 2048, 2048, 2048, 2048]
decoder-ffn-embed-dim-all-subtransformer: [3072, 2048, 2048, 2048, 2048, 2048, 2048]
encoder-self-attention-heads-all-subtransformer: [8, 8, 8, 8, 4, 4]
decoder-self-attention-heads-all-subtransformer: [8, 4, 4, 4, 4, 4, 4]
decoder-ende-attention-heads-all-subtransformer: [8, 8, 8, 8, 8, 8, 8]
decoder-arbitrary-ende-attn-all-subtransformer: [-1, 1, 1, 1, 1, 1, 1]
`
	report = engine.RunFile(writeConfig(t, outOfSpace))
	assert.Equal(t, StatusFail, report.Status)
	require.NotEmpty(t, findingsOf(report, "subtransformer"))

	// SubTransformer options without a declared space only warn
	report = engine.RunFile(writeConfig(t, "encoder-embed-dim-subtransformer: 640\n"))
	assert.Equal(t, StatusWarn, report.Status)
}

func TestSpaceCheckPartialDeclaration(t *testing.T) {
	engine := NewEngine(nil, "space", "")

	// a lone choice list declares a space with the other dimensions missing
	report := engine.RunFile(writeConfig(t, "qkv-dim: 512\nencoder-ffn-embed-dim-choice: [3072]\n"))
	assert.Equal(t, StatusFail, report.Status)
	findings := findingsOf(report, "space")
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "no candidates")
}

func TestRankingCheck(t *testing.T) {
	engine := NewEngine(nil, "ranking", "")

	report := engine.RunFile(writeConfig(t, "rank-list-size: 1\ncorr-threshold: 2\n"))
	assert.Len(t, findingsOf(report, "ranking"), 2)

	report = engine.RunFile(writeConfig(t, "rank-list-size: 16\ncorr-threshold: 0.97\nranking-patience: 5\n"))
	assert.Empty(t, report.Findings)
}

func TestEngineFilters(t *testing.T) {
	engine := NewEngine(nil, "batch,schema", "")
	require.Len(t, engine.Checks, 2)

	engine = NewEngine(nil, "", "paths,ranking")
	names := make(map[string]bool)
	for _, c := range engine.Checks {
		names[c.Name()] = true
	}
	assert.False(t, names["paths"])
	assert.False(t, names["ranking"])
	assert.True(t, names["schema"])

	// a report from a filtered engine only carries stats for its checks
	report := NewEngine(nil, "batch", "").RunFile(writeConfig(t, "max-tokens: 4096\n"))
	require.Len(t, report.Stats, 1)
	assert.Equal(t, "batch", report.Stats[0].Name)
}

func TestSchemaCheck(t *testing.T) {
	engine := NewEngine(nil, "schema", "")

	report := engine.RunFile(writeConfig(t, "max-tokens: many\nmystery-option: 1\n"))
	findings := findingsOf(report, "schema")
	require.Len(t, findings, 2)

	bySeverity := map[Severity]int{}
	for _, f := range findings {
		bySeverity[f.Severity]++
	}
	assert.Equal(t, 1, bySeverity[Error])
	assert.Equal(t, 1, bySeverity[Warning])
}
