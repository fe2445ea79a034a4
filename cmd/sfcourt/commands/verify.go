package commands

import (
	"log/slog"
	"os"

	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/osutil"
	"sfcourt-backend/lib/scrapers/sfcourt"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"
)

var (
	verifyDataDir *string
	verifyDeep    *bool
)

func init() {
	verifyDataDir = verifyCmd.Flags().String("data-dir", "case_data", "Directory the archive lives in.")
	verifyDeep = verifyCmd.Flags().Bool("deep", false, "Also parse every downloaded PDF, not just its signature.")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [--data-dir <dir>] [--deep]",
	Short: "Cross-checks case records against the documents actually on disk.",
	Run: func(cmd *cobra.Command, args []string) {
		store := casestore.New(*verifyDataDir)
		dates, err := store.Dates()
		if err != nil {
			osutil.Fatal("failed to list archive dates", err)
		}

		problems := 0
		for _, date := range dates {
			entries, err := os.ReadDir(store.DayDir(date))
			if err != nil {
				osutil.Fatal("failed to read date directory", err)
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				problems += verifyCase(store, date, entry.Name())
			}
		}

		if problems > 0 {
			slog.Warn("verification found inconsistencies", "problems", problems)
			os.Exit(1)
		}
		slog.Info("archive verified", "dates", len(dates))
	},
}

func verifyCase(store *casestore.Store, date, caseNumber string) int {
	rec, ok := store.ReadCaseRecord(date, caseNumber)
	if !ok {
		slog.Warn("case directory has no readable record", "date", date, "case", caseNumber)
		return 1
	}
	if rec.Metadata.Status == casestore.StatusRestricted {
		return 0
	}

	problems := 0
	onDisk := store.CountArtifacts(date, caseNumber, rec.Actions)
	if onDisk != rec.Metadata.ScrapedLinks {
		slog.Warn("recorded scraped_links disagrees with disk",
			"date", date, "case", caseNumber,
			"recorded", rec.Metadata.ScrapedLinks, "on_disk", onDisk)
		problems++
	}
	if casestore.Completed(rec.Metadata) && onDisk < rec.Metadata.TotalLinks {
		slog.Warn("case marked complete but documents are missing",
			"date", date, "case", caseNumber,
			"on_disk", onDisk, "total_links", rec.Metadata.TotalLinks)
		problems++
	}

	for _, action := range rec.Actions {
		if action.DocFilename == "" {
			continue
		}
		path := store.ArtifactPath(date, caseNumber, action.DocFilename)
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !sfcourt.ValidDocument(raw) {
			slog.Warn("artifact does not look like a court document",
				"date", date, "case", caseNumber, "filename", action.DocFilename)
			problems++
			continue
		}
		if *verifyDeep {
			f, _, err := pdf.Open(path)
			if err != nil {
				slog.Warn("artifact fails pdf parsing",
					"date", date, "case", caseNumber, "filename", action.DocFilename, "err", err)
				problems++
			}
			if f != nil {
				f.Close()
			}
		}
	}
	return problems
}
