package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/hatlab/hatctl/pkg/runconf"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <config a> <config b>",
	Short: "Compare two run configurations option by option",
	Args:  cobra.ExactArgs(2),
	Run:   runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	a, err := runconf.ParseFile(args[0])
	if err != nil {
		color.Red("Failed to parse %s: %v", args[0], err)
		os.Exit(1)
	}
	b, err := runconf.ParseFile(args[1])
	if err != nil {
		color.Red("Failed to parse %s: %v", args[1], err)
		os.Exit(1)
	}

	keys := make(map[string]bool)
	for _, k := range a.Keys() {
		keys[k] = true
	}
	for _, k := range b.Keys() {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	changed := 0
	for _, key := range sorted {
		av, aok := a.Lookup(key)
		bv, bok := b.Lookup(key)

		switch {
		case aok && !bok:
			color.Red("- %s: %s", key, av.String())
			changed++
		case !aok && bok:
			color.Green("+ %s: %s", key, bv.String())
			changed++
		case av.String() != bv.String():
			color.Red("- %s: %s", key, av.String())
			color.Green("+ %s: %s", key, bv.String())
			changed++
		}
	}

	if changed == 0 {
		fmt.Println("Configurations set the same options to the same values.")
		return
	}

	fmt.Println()
	color.Cyan("%d option(s) differ", changed)
	os.Exit(1)
}
