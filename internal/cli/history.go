package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scan runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := appInstance.Storage.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No scan runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tSCANNED\tOK\tRESULTS")
		fmt.Fprintln(w, "--\t-------\t------\t-------\t--\t-------")
		for _, run := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d\t%s\n",
				run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status, run.Scanned, run.TotalCandidates,
				run.Succeeded, run.ResultFile)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the records of one scan run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id: %s", args[0])
		}

		records, err := appInstance.Storage.GetRunRecords(ctx, runID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No records for run %d\n", runID)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IP\tBLOCK\tDL KB/s\tDL ms\tDL JITTER\tUL KB/s\tUL ms")
		fmt.Fprintln(w, "--\t-----\t-------\t-----\t---------\t-------\t-----")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
				rec.IP, rec.Block,
				rec.AvgDownloadSpeed, rec.AvgDownloadLatency, rec.DownloadJitter,
				rec.AvgUploadSpeed, rec.AvgUploadLatency)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 20, "number of runs to list")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
