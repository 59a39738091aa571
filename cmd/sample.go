package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/hatlab/hatctl/pkg/runconf"
	"github.com/hatlab/hatctl/pkg/space"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	sampleCount    int
	sampleSeed     int64
	sampleOut      string
	sampleLargest  bool
	sampleSmallest bool
)

var sampleCmd = &cobra.Command{
	Use:   "sample <space config>",
	Short: "Sample SubTransformer architectures from a search space",
	Long: `Sample unique SubTransformer architectures from the search space of a
SuperTransformer configuration and write them as arch files`,
	Args: cobra.ExactArgs(1),
	Run:  runSample,
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleCount, "num", "n", 1, "number of unique architectures to sample")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 1, "sampling seed")
	sampleCmd.Flags().StringVarP(&sampleOut, "output", "o", "", "directory to write arch files to (default: stdout)")
	sampleCmd.Flags().BoolVar(&sampleLargest, "largest", false, "emit the largest architecture in the space")
	sampleCmd.Flags().BoolVar(&sampleSmallest, "smallest", false, "emit the smallest architecture in the space")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) {
	doc, err := runconf.ParseFile(args[0])
	if err != nil {
		color.Red("Failed to parse %s: %v", args[0], err)
		os.Exit(1)
	}
	cfg, _ := runconf.Decode(doc)

	sp := space.FromConfig(cfg)
	if err := sp.Validate(); err != nil {
		color.Red("Invalid search space in %s: %v", args[0], err)
		os.Exit(1)
	}

	var archs []*space.Arch
	switch {
	case sampleLargest && sampleSmallest:
		color.Red("Error: cannot use both -largest and -smallest")
		os.Exit(1)
	case sampleLargest:
		archs = []*space.Arch{sp.Largest()}
	case sampleSmallest:
		archs = []*space.Arch{sp.Smallest()}
	default:
		archs, err = sp.SampleUnique(sampleCount, sampleSeed)
		if err != nil {
			color.Red("Sampling failed: %v", err)
			os.Exit(1)
		}
	}

	if sampleOut == "" {
		for i, arch := range archs {
			if i > 0 {
				fmt.Println()
			}
			if err := space.WriteArch(os.Stdout, arch); err != nil {
				color.Red("Failed to write architecture: %v", err)
				os.Exit(1)
			}
		}
		return
	}

	if err := os.MkdirAll(sampleOut, 0755); err != nil {
		color.Red("Failed to create output directory: %v", err)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	if len(archs) > 1 && !silent {
		bar = progressbar.Default(int64(len(archs)), "writing arch files")
	}

	for i, arch := range archs {
		path := filepath.Join(sampleOut, fmt.Sprintf("arch_%d.yml", i))
		if err := space.WriteArchFile(path, arch); err != nil {
			color.Red("Failed to write %s: %v", path, err)
			os.Exit(1)
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if !silent {
		card := sp.Cardinality()
		size := humanize.Comma(int64(card))
		if card > math.MaxInt64 {
			size = "over 9 quintillion"
		}
		color.Green("\nWrote %d arch file(s) to %s (space holds %s architectures)",
			len(archs), sampleOut, size)
	}
}
