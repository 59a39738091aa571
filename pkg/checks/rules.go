package checks

import (
	"os"
	"path/filepath"

	"github.com/hatlab/hatctl/pkg/runconf"
	"github.com/hatlab/hatctl/pkg/space"
)

// schema: undecodable values are errors, unknown options are warnings since
// the trainer grows options faster than this tool does.
type schemaCheck struct{}

func (schemaCheck) Name() string { return "schema" }

func (schemaCheck) Run(ctx *Context) []Finding {
	var out []Finding
	for _, issue := range ctx.Issues {
		out = append(out, finding("schema", Error, issue.Key, "%s", issue.Message))
	}
	for _, key := range ctx.Config.UnknownKeys {
		out = append(out, finding("schema", Warning, key, "unknown option"))
	}
	return out
}

// batch: the trainer refuses to start without a batch size, either
// max-tokens or max-sentences.
type batchCheck struct{}

func (batchCheck) Name() string { return "batch" }

func (batchCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	if cfg.Has("max-tokens") || cfg.Has("max-sentences") {
		var out []Finding
		if cfg.Has("max-tokens") && cfg.Dataset.MaxTokens <= 0 {
			out = append(out, finding("batch", Error, "max-tokens", "must be positive, got %d", cfg.Dataset.MaxTokens))
		}
		if cfg.Has("max-sentences") && cfg.Dataset.MaxSentences <= 0 {
			out = append(out, finding("batch", Error, "max-sentences", "must be positive, got %d", cfg.Dataset.MaxSentences))
		}
		return out
	}
	return []Finding{finding("batch", Error, "", "must specify batch size either with max-tokens or max-sentences")}
}

type optimizerCheck struct{}

func (optimizerCheck) Name() string { return "optimizer" }

func (optimizerCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	opt := cfg.Optimization
	var out []Finding

	if cfg.Has("lr") {
		if len(opt.LR) == 0 {
			out = append(out, finding("optimizer", Error, "lr", "learning rate list is empty"))
		}
		for _, lr := range opt.LR {
			if lr <= 0 {
				out = append(out, finding("optimizer", Error, "lr", "learning rate %g is not positive", lr))
			}
		}
	}
	if cfg.Has("min-lr") && cfg.Has("max-lr") && opt.MinLR > opt.MaxLR {
		out = append(out, finding("optimizer", Error, "min-lr", "min-lr %g exceeds max-lr %g", opt.MinLR, opt.MaxLR))
	}
	if cfg.Has("warmup-updates") && opt.WarmupUpdates < 0 {
		out = append(out, finding("optimizer", Error, "warmup-updates", "must not be negative, got %d", opt.WarmupUpdates))
	}
	if cfg.Has("warmup-init-lr") && opt.WarmupInitLR < 0 {
		out = append(out, finding("optimizer", Error, "warmup-init-lr", "must not be negative, got %g", opt.WarmupInitLR))
	}
	if cfg.Has("clip-norm") && opt.ClipNorm < 0 {
		out = append(out, finding("optimizer", Error, "clip-norm", "must not be negative, got %g", opt.ClipNorm))
	}
	if cfg.Has("weight-decay") && opt.WeightDecay < 0 {
		out = append(out, finding("optimizer", Error, "weight-decay", "must not be negative, got %g", opt.WeightDecay))
	}
	if cfg.Has("lr-shrink") && (opt.LRShrink <= 0 || opt.LRShrink > 1) {
		out = append(out, finding("optimizer", Error, "lr-shrink", "must be in (0, 1], got %g", opt.LRShrink))
	}
	if cfg.Has("adam-betas") {
		b1, b2, err := runconf.ParseBetas(opt.AdamBetas)
		if err != nil {
			out = append(out, finding("optimizer", Error, "adam-betas", "%s", err))
		} else if b1 <= 0 || b1 >= 1 || b2 <= 0 || b2 >= 1 {
			out = append(out, finding("optimizer", Error, "adam-betas", "betas (%g, %g) must lie in (0, 1)", b1, b2))
		}
	}
	return out
}

type criterionCheck struct{}

func (criterionCheck) Name() string { return "criterion" }

func (criterionCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	opt := cfg.Optimization
	var out []Finding

	if cfg.Has("label-smoothing") && (opt.LabelSmoothing < 0 || opt.LabelSmoothing >= 1) {
		out = append(out, finding("criterion", Error, "label-smoothing", "must be in [0, 1), got %g", opt.LabelSmoothing))
	}
	if cfg.Has("dropout") && (opt.Dropout < 0 || opt.Dropout >= 1) {
		out = append(out, finding("criterion", Error, "dropout", "must be in [0, 1), got %g", opt.Dropout))
	}
	if cfg.Has("attention-dropout") && (opt.AttnDropout < 0 || opt.AttnDropout >= 1) {
		out = append(out, finding("criterion", Error, "attention-dropout", "must be in [0, 1), got %g", opt.AttnDropout))
	}
	if cfg.Has("criterion") && opt.Criterion == "label_smoothed_cross_entropy" && !cfg.Has("label-smoothing") {
		out = append(out, finding("criterion", Warning, "label-smoothing", "label_smoothed_cross_entropy without an explicit label-smoothing"))
	}
	return out
}

type cadenceCheck struct{}

func (cadenceCheck) Name() string { return "cadence" }

func (cadenceCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	var out []Finding

	if cfg.Has("save-interval") && cfg.Checkpoint.SaveInterval < 1 {
		out = append(out, finding("cadence", Error, "save-interval", "must be at least 1, got %d", cfg.Checkpoint.SaveInterval))
	}
	if cfg.Has("validate-interval") && cfg.Checkpoint.ValidateInterval < 1 {
		out = append(out, finding("cadence", Error, "validate-interval", "must be at least 1, got %d", cfg.Checkpoint.ValidateInterval))
	}
	if cfg.Has("save-interval-updates") && cfg.Checkpoint.SaveIntervalUpdates < 0 {
		out = append(out, finding("cadence", Error, "save-interval-updates", "must not be negative, got %d", cfg.Checkpoint.SaveIntervalUpdates))
	}
	for _, uf := range cfg.Optimization.UpdateFreq {
		if uf < 1 {
			out = append(out, finding("cadence", Error, "update-freq", "entries must be at least 1, got %d", uf))
		}
	}
	if cfg.Has("distributed-world-size") && cfg.Distributed.WorldSize < 1 {
		out = append(out, finding("cadence", Error, "distributed-world-size", "must be at least 1, got %d", cfg.Distributed.WorldSize))
	}
	if cfg.Has("num-workers") && cfg.Dataset.NumWorkers < 0 {
		out = append(out, finding("cadence", Error, "num-workers", "must not be negative, got %d", cfg.Dataset.NumWorkers))
	}
	return out
}

// space: internal consistency of the SuperTransformer choice lists.
type spaceCheck struct{}

func (spaceCheck) Name() string { return "space" }

func (spaceCheck) Run(ctx *Context) []Finding {
	if !hasSpace(ctx.Config) {
		return nil
	}
	if err := space.FromConfig(ctx.Config).Validate(); err != nil {
		return []Finding{finding("space", Error, "", "%s", err)}
	}
	return nil
}

// subtransformer: a chosen SubTransformer must stay inside the declared
// search space. The external trainer assumes this holds and never checks.
type subtransformerCheck struct{}

func (subtransformerCheck) Name() string { return "subtransformer" }

func (subtransformerCheck) Run(ctx *Context) []Finding {
	arch, ok := space.ArchFromConfig(ctx.Config)
	if !ok {
		return nil
	}
	if !hasSpace(ctx.Config) {
		return []Finding{finding("subtransformer", Warning, "",
			"SubTransformer options set but no search-space choices to validate against")}
	}

	sp := space.FromConfig(ctx.Config)
	if err := sp.Validate(); err != nil {
		// reported by the space check
		return nil
	}
	if err := sp.Contains(arch); err != nil {
		return []Finding{finding("subtransformer", Error, "", "%s", err)}
	}
	return nil
}

// hasSpace reports whether the configuration declares any search-space
// choice list. A partial declaration still counts: the space check will
// then flag the missing dimensions.
func hasSpace(cfg *runconf.RunConfig) bool {
	for _, key := range spaceChoiceKeys {
		if cfg.Has(key) {
			return true
		}
	}
	return false
}

var spaceChoiceKeys = []string{
	"encoder-embed-choice",
	"decoder-embed-choice",
	"encoder-ffn-embed-dim-choice",
	"decoder-ffn-embed-dim-choice",
	"encoder-layer-num-choice",
	"decoder-layer-num-choice",
	"encoder-self-attention-heads-choice",
	"decoder-self-attention-heads-choice",
	"decoder-ende-attention-heads-choice",
	"decoder-arbitrary-ende-attn-choice",
}

// paths: referenced filesystem locations. Warnings only, the corpus is
// routinely validated on machines that do not hold the datasets.
type pathsCheck struct{}

func (pathsCheck) Name() string { return "paths" }

func (pathsCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	var out []Finding

	check := func(key, path string, parent bool) {
		if path == "" {
			return
		}
		if parent {
			path = filepath.Dir(path)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			out = append(out, finding("paths", Warning, key, "%s does not exist", path))
		}
	}

	if cfg.Has("data") {
		check("data", cfg.Dataset.Data, false)
	}
	if cfg.Has("save-dir") {
		check("save-dir", cfg.Checkpoint.SaveDir, true)
	}
	if cfg.Has("lat-dataset-path") {
		check("lat-dataset-path", cfg.Latency.LatDatasetPath, true)
	}
	if cfg.Has("arch-path") {
		check("arch-path", cfg.Ranking.ArchPath, true)
	}
	return out
}

type rankingCheck struct{}

func (rankingCheck) Name() string { return "ranking" }

func (rankingCheck) Run(ctx *Context) []Finding {
	cfg := ctx.Config
	rk := cfg.Ranking
	var out []Finding

	if cfg.Has("rank-list-size") && rk.RankListSize < 2 {
		out = append(out, finding("ranking", Error, "rank-list-size", "need at least 2 architectures to rank, got %d", rk.RankListSize))
	}
	if cfg.Has("corr-threshold") && (rk.CorrThreshold <= -1 || rk.CorrThreshold > 1) {
		out = append(out, finding("ranking", Error, "corr-threshold", "must be in (-1, 1], got %g", rk.CorrThreshold))
	}
	if cfg.Has("ranking-patience") && rk.RankingPatience < 0 {
		out = append(out, finding("ranking", Error, "ranking-patience", "must not be negative, got %d", rk.RankingPatience))
	}
	if cfg.Has("latiter") && cfg.Latency.LatIter < 1 {
		out = append(out, finding("ranking", Error, "latiter", "must be at least 1, got %d", cfg.Latency.LatIter))
	}
	return out
}
