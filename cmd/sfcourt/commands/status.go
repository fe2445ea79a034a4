package commands

import (
	"os"

	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/osutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusDataDir *string

func init() {
	statusDataDir = statusCmd.Flags().String("data-dir", "case_data", "Directory the archive lives in.")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [--data-dir <dir>]",
	Short: "Prints per-date archive progress from the day summaries.",
	Run: func(cmd *cobra.Command, args []string) {
		store := casestore.New(*statusDataDir)
		dates, err := store.Dates()
		if err != nil {
			osutil.Fatal("failed to list archive dates", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Cases", "Scraped", "Completed", "Done"})

		var totalCases, totalScraped, totalCompleted, doneDates int
		for _, date := range dates {
			summary, ok := store.ReadDaySummary(date)
			if !ok {
				t.AppendRow(table.Row{date, "?", "?", "?", ""})
				continue
			}
			done := ""
			if summary.FullyCompleted {
				done = "yes"
				doneDates++
			}
			t.AppendRow(table.Row{date, summary.TotalCases, summary.ScrapedCases, summary.CompletedCases, done})
			totalCases += summary.TotalCases
			totalScraped += summary.ScrapedCases
			totalCompleted += summary.CompletedCases
		}
		t.AppendFooter(table.Row{"Total", totalCases, totalScraped, totalCompleted, doneDates})
		t.Render()
	},
}
