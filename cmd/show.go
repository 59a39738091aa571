package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hatlab/hatctl/pkg/runconf"
	"github.com/hatlab/hatctl/pkg/space"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <config file>",
	Short: "Display a run configuration by category",
	Long:  `Display a run configuration grouped into its option categories, with a parameter-count estimate for SubTransformer configs`,
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// category layout mirrors the grouping of the typed schema
var showCategories = []struct {
	title string
	keys  []string
}{
	{"TASK", []string{
		"task", "arch", "train-subtransformer", "validate-subtransformer",
		"profile-flops", "share-all-embeddings", "user-dir", "disable-validation",
	}},
	{"DATASET", []string{
		"data", "train-subset", "valid-subset", "num-workers", "max-tokens", "max-sentences",
	}},
	{"OPTIMIZATION", []string{
		"optimizer", "adam-betas", "adam-eps", "clip-norm", "weight-decay", "lr",
		"min-lr", "lr-scheduler", "warmup-init-lr", "warmup-updates", "max-lr",
		"lr-period-updates", "lr-shrink", "max-update", "max-epoch", "update-freq",
		"criterion", "label-smoothing", "dropout", "attention-dropout", "seed", "fp16",
	}},
	{"CHECKPOINTING", []string{
		"save-dir", "save-interval", "save-interval-updates", "keep-last-epochs",
		"no-epoch-checkpoints", "validate-interval", "log-interval", "log-format",
		"tensorboard-logdir",
	}},
	{"DISTRIBUTED", []string{
		"distributed-world-size", "cpu",
	}},
	{"SEARCH SPACE", []string{
		"qkv-dim", "encoder-embed-choice", "decoder-embed-choice",
		"encoder-ffn-embed-dim-choice", "decoder-ffn-embed-dim-choice",
		"encoder-layer-num-choice", "decoder-layer-num-choice",
		"encoder-self-attention-heads-choice", "decoder-self-attention-heads-choice",
		"decoder-ende-attention-heads-choice", "decoder-arbitrary-ende-attn-choice",
		"vocab-original-scaling",
	}},
	{"SUBTRANSFORMER", []string{
		"encoder-embed-dim-subtransformer", "decoder-embed-dim-subtransformer",
		"encoder-layer-num-subtransformer", "decoder-layer-num-subtransformer",
		"encoder-ffn-embed-dim-all-subtransformer", "decoder-ffn-embed-dim-all-subtransformer",
		"encoder-self-attention-heads-all-subtransformer", "decoder-self-attention-heads-all-subtransformer",
		"decoder-ende-attention-heads-all-subtransformer", "decoder-arbitrary-ende-attn-all-subtransformer",
	}},
	{"LATENCY", []string{
		"latcpu", "latgpu", "latiter", "lat-dataset-path", "core-num",
	}},
	{"RANKING", []string{
		"rank-list-size", "ranking-patience", "corr-threshold", "arch-path",
	}},
}

func runShow(cmd *cobra.Command, args []string) {
	path := args[0]

	doc, err := runconf.ParseFile(path)
	if err != nil {
		color.Red("Failed to parse %s: %v", path, err)
		os.Exit(1)
	}
	cfg, issues := runconf.Decode(doc)

	color.Cyan("%s", path)
	fmt.Println(strings.Repeat("─", len(path)))

	shown := make(map[string]bool)
	for _, cat := range showCategories {
		var lines [][2]string
		for _, key := range cat.keys {
			if !doc.Has(key) {
				continue
			}
			shown[key] = true
			lines = append(lines, [2]string{key, doc.Get(key).String()})
		}
		if len(lines) == 0 {
			continue
		}

		fmt.Println()
		color.Green("%s", cat.title)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\t%s\n", l[0], l[1])
		}
		w.Flush()
	}

	var unknown []string
	for _, key := range doc.Keys() {
		if !shown[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		fmt.Println()
		color.Yellow("UNKNOWN OPTIONS")
		for _, key := range unknown {
			fmt.Printf("  %s: %s\n", key, doc.Get(key).String())
		}
	}

	for _, issue := range issues {
		color.Yellow("[WARN] %s", issue)
	}

	if arch, ok := space.ArchFromConfig(cfg); ok && cfg.Super.QKVDim > 0 {
		if params, err := arch.ParamCount(cfg.Super.QKVDim); err == nil {
			fmt.Println()
			color.Cyan("SubTransformer parameters (without embedding weights): %s",
				humanize.Comma(params))
		}
	}

	fmt.Println()
}
