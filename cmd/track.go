package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hatlab/hatctl/pkg/database"
	"github.com/hatlab/hatctl/pkg/runner"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	trackStatus string
	trackAll    bool
)

var trackCmd = &cobra.Command{
	Use:   "track [experiment]",
	Short: "Query the run tracking database",
	Long:  `Query the run tracking database for a specific experiment or all experiments`,
	Run:   runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackStatus, "status", "", "filter by status (clean, warn, fail)")
	trackCmd.Flags().BoolVar(&trackAll, "all", false, "query all experiments")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) {
	if !trackAll && len(args) == 0 {
		color.Red("Error: either provide an experiment or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if trackAll && len(args) > 0 {
		color.Red("Error: cannot use both experiment and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	run, err := runner.NewRunner(configFile)
	if err != nil {
		color.Red("Failed to initialize runner: %v", err)
		os.Exit(1)
	}

	db := run.GetDB()
	if db == nil || !db.IsEnabled() {
		color.Red("Error: Database is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	if trackStatus != "" {
		trackStatus = strings.ToUpper(trackStatus)
	}

	records, err := queryRecords(run, args)
	if err != nil {
		color.Red("Failed to query database: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		color.Yellow("[INF] No tracked runs found.")
		os.Exit(0)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("EXPERIMENT\tCONFIG\tHASH\tPARAMS\tSTATUS\tFIRST_SEEN\tLAST_SEEN"))
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		statusColor := color.GreenString
		if r.Status == "FAIL" {
			statusColor = color.RedString
		} else if r.Status == "WARN" {
			statusColor = color.YellowString
		}

		params := "-"
		if r.Params > 0 {
			params = humanize.Comma(r.Params)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Experiment,
			r.ConfigPath,
			r.ConfigHash,
			params,
			statusColor(r.Status),
			r.FirstSeen.Format("2006-01-02 15:04:05"),
			r.LastSeen.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}

func queryRecords(run *runner.Runner, args []string) ([]database.RunRecord, error) {
	db := run.GetDB()
	if trackAll {
		return db.QueryAllRuns(trackStatus)
	}
	return db.QueryRuns(args[0], trackStatus)
}
