package cmd

import (
	"fmt"
	"os"

	"github.com/hatlab/hatctl/pkg/ranking"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank <metrics a> <metrics b>",
	Short: "Rank correlation between two architecture metric files",
	Long: `Compute Kendall tau and Spearman correlation between two metric files
(one 'name value' pair per line) ranking the same architectures`,
	Args: cobra.ExactArgs(2),
	Run:  runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) {
	a, err := ranking.ReadTable(args[0])
	if err != nil {
		color.Red("Failed to read %s: %v", args[0], err)
		os.Exit(1)
	}
	b, err := ranking.ReadTable(args[1])
	if err != nil {
		color.Red("Failed to read %s: %v", args[1], err)
		os.Exit(1)
	}

	result, err := ranking.Compare(a, b)
	if err != nil {
		color.Red("Cannot compare: %v", err)
		os.Exit(1)
	}

	fmt.Printf("architectures:  %d\n", result.N)
	fmt.Printf("kendall tau:    %.4f\n", result.Kendall)
	fmt.Printf("spearman:       %.4f\n", result.Spearman)
}
