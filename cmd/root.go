package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hatlab/hatctl/pkg/checks"
	"github.com/hatlab/hatctl/pkg/config"
	"github.com/hatlab/hatctl/pkg/database"
	"github.com/hatlab/hatctl/pkg/runner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFile    string
	selectChecks  string
	excludeChecks string
	outputFile    string
	jsonFormat    bool
	silent        bool
	stats         bool
	verbose       bool
	trackRuns     bool
	experiment    string
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "hatctl [config files or directories]",
	Short: "toolkit for SuperTransformer/SubTransformer run configurations",
	Long:  `parse, validate, inspect and track the run-configuration files of hardware-aware transformer search`,
	Run:   runValidate,
}

func Execute() {
	hasSilentFlag := false
	for i, arg := range os.Args {
		if arg == "-silent" {
			os.Args[i] = "--silent"
			hasSilentFlag = true
		}
		if arg == "-stats" {
			os.Args[i] = "--stats"
		}
		if arg == "-checks" {
			os.Args[i] = "--checks"
		}
		if arg == "-ec" {
			os.Args[i] = "--ec"
		}
		if arg == "-track" {
			os.Args[i] = "--track"
		}
		if arg == "-exp" {
			os.Args[i] = "--exp"
		}
	}

	if !hasSilentFlag {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	checks.DebugLog = DebugLog
	runner.DebugLog = DebugLog
	database.DebugLog = DebugLog
}

func init() {
	rootCmd.SetHelpTemplate(`Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasAvailableSubCommands}}Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Flags:
INPUT:
   [paths]                 run-configuration files, or directories walked for *.yml

CHECKS:
   -checks string          comma-separated list of checks to run (e.g., 'schema,subtransformer')
   -ec string              comma-separated list of checks to exclude (e.g., 'paths')

TRACKING:
   -track                  record validated runs in the tracking database
   -exp string             experiment name to track under (default from config)

OUTPUT:
   -o, -output string      file to write output to
   -j, -json               write reports in JSONL(ines) format
   -silent                 silent mode - no banner or extra output
   -stats                  display per-check statistics after validation

CONFIGURATION:
   -c, -config string      config file path (default: config/config.yaml)

OPTIMIZATION:
   -v, -verbose            enable verbose/debug output
{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config/config.yaml)")

	rootCmd.Flags().StringVar(&selectChecks, "checks", "", "comma-separated list of checks to run")
	rootCmd.Flags().StringVar(&excludeChecks, "ec", "", "comma-separated list of checks to exclude")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "file to write output to")
	rootCmd.Flags().BoolVarP(&jsonFormat, "json", "j", false, "write reports in JSONL(ines) format")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")
	rootCmd.Flags().BoolVar(&stats, "stats", false, "display per-check statistics after validation")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.Flags().BoolVar(&trackRuns, "track", false, "record validated runs in the tracking database")
	rootCmd.Flags().StringVar(&experiment, "exp", "", "experiment name to track under")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		color.Red("Error: at least one configuration file or directory is required")
		cmd.Help()
		os.Exit(1)
	}

	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	run, err := runner.NewRunner(configFile)
	if err != nil {
		color.Red("Failed to initialize runner: %v", err)
		os.Exit(1)
	}

	result, err := run.RunValidate(runner.ValidateOptions{
		Paths:         args,
		Checks:        selectChecks,
		ExcludeChecks: excludeChecks,
		Experiment:    experiment,
		Track:         trackRuns,
		Silent:        silent || jsonFormat,
	})
	if err != nil {
		color.Red("Validation failed: %v", err)
		os.Exit(1)
	}

	if err := handleOutput(result); err != nil {
		color.Red("Output error: %v", err)
		os.Exit(1)
	}

	if stats && !silent {
		displayStatistics(result)
	}

	if result.Success {
		os.Exit(0)
	}
	os.Exit(1)
}

func printBanner() {
	banner := color.CyanString(`
┬ ┬┌─┐┌┬┐┌─┐┌┬┐┬
├─┤├─┤ │ │   │ │
┴ ┴┴ ┴ ┴ └─┘ ┴ ┴─┘
`)
	info := color.HiBlackString("run-configuration toolkit for hardware-aware transformer search")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}

func handleOutput(result *runner.ValidateResult) error {
	if outputFile == "" {
		if jsonFormat {
			return writeJSONReports(os.Stdout, result)
		}
		displaySummary(result)
		return nil
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if jsonFormat {
		if err := writeJSONReports(file, result); err != nil {
			return err
		}
	} else {
		for _, report := range result.Reports {
			if _, err := fmt.Fprintf(file, "%s %s\n", report.Status, report.Path); err != nil {
				return fmt.Errorf("failed to write to file: %w", err)
			}
		}
	}

	if !silent {
		displaySummary(result)
	}
	return nil
}

func displaySummary(result *runner.ValidateResult) {
	if silent {
		return
	}
	if result.Success {
		color.Green("\nValidation completed: %d file(s), %d finding(s) in %v",
			result.FilesScanned, result.TotalFindings, result.Duration)
	} else {
		color.Red("\nValidation completed: %d file(s), %d finding(s) in %v",
			result.FilesScanned, result.TotalFindings, result.Duration)
	}
}

func writeJSONReports(w *os.File, result *runner.ValidateResult) error {
	for _, report := range result.Reports {
		jsonBytes, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(jsonBytes)); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

func displayStatistics(result *runner.ValidateResult) {
	fmt.Println()

	color.Cyan("[INF] Printing check statistics for %d file(s)", result.FilesScanned)
	fmt.Println()

	type agg struct {
		duration time.Duration
		findings int
		errors   int
	}
	byCheck := make(map[string]*agg)
	for _, report := range result.Reports {
		for _, stat := range report.Stats {
			a := byCheck[stat.Name]
			if a == nil {
				a = &agg{}
				byCheck[stat.Name] = a
			}
			a.duration += stat.Duration
			a.findings += stat.Findings
			a.errors += stat.Errors
		}
	}

	names := make([]string, 0, len(byCheck))
	for name := range byCheck {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf(" %-20s %-15s %-12s %-10s\n", "Check", "Duration", "Findings", "Errors")
	color.Cyan(strings.Repeat("─", 60))

	for _, name := range names {
		a := byCheck[name]
		duration := fmt.Sprintf("%.0fms", a.duration.Seconds()*1000)
		if a.duration.Seconds() >= 1 {
			duration = fmt.Sprintf("%.3fs", a.duration.Seconds())
		}

		fmt.Printf(" %-20s %-15s %-12d %-10d\n", name, duration, a.findings, a.errors)
	}

	fmt.Println()
}
