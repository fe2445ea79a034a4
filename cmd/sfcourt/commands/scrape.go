package commands

import (
	"fmt"
	"time"

	"sfcourt-backend/lib/browser"
	"sfcourt-backend/lib/casestore"
	"sfcourt-backend/lib/osutil"
	"sfcourt-backend/lib/restyutil"
	"sfcourt-backend/lib/scrapers/sfcourt"
	"sfcourt-backend/services/archiver"

	"github.com/spf13/cobra"
)

var (
	scrapeStart       *string
	scrapeEnd         *string
	scrapeResume      *string
	scrapeDataDir     *string
	scrapePort        *int
	scrapeProfile     *string
	scrapeChrome      *string
	scrapeConcurrency *int64
	scrapeDebugHttp   *bool
)

func init() {
	scrapeStart = scrapeCmd.Flags().String("start-date", "", "First filing date to archive (YYYY-MM-DD).")
	scrapeEnd = scrapeCmd.Flags().String("end-date", "", "Last filing date to archive, defaults to the start date.")
	scrapeResume = scrapeCmd.Flags().String("resume-case", "", "Case number to fast-forward to within the first date.")
	scrapeDataDir = scrapeCmd.Flags().String("data-dir", "case_data", "Directory records and documents are written to.")
	scrapePort = scrapeCmd.Flags().Int("port", 9222, "Chrome remote debugging port.")
	scrapeProfile = scrapeCmd.Flags().String("profile", "chrome_profile", "Chrome profile directory, keeps challenge clearance across restarts.")
	scrapeChrome = scrapeCmd.Flags().String("chrome", "", "Path to the chrome binary, searched for when empty.")
	scrapeConcurrency = scrapeCmd.Flags().Int64("download-concurrency", sfcourt.DefaultFetchConcurrency, "Concurrent document downloads per case.")
	scrapeDebugHttp = scrapeCmd.Flags().Bool("debug-http", false, "Dump every document fetch to .dev/resty/sfcourt.")
	scrapeCmd.MarkFlagRequired("start-date")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --start-date <YYYY-MM-DD> [--end-date <YYYY-MM-DD>]",
	Short: "Walks a filing date range in a human-assisted browser session and archives every case.",
	Run: func(cmd *cobra.Command, args []string) {
		start, err := time.Parse(archiver.DateFormat, *scrapeStart)
		if err != nil {
			osutil.Fatal("invalid --start-date", err)
		}
		end := start
		if *scrapeEnd != "" {
			end, err = time.Parse(archiver.DateFormat, *scrapeEnd)
			if err != nil {
				osutil.Fatal("invalid --end-date", err)
			}
		}
		if end.Before(start) {
			osutil.Fatal("invalid date range", fmt.Errorf("end date %s precedes start date %s", *scrapeEnd, *scrapeStart))
		}

		opts := sfcourt.ClientOptions{}
		if *scrapeDebugHttp {
			out := restyutil.NewFilesystemOutput(".dev/resty/sfcourt")
			opts.DebugOutput = &out
		}
		client, err := sfcourt.NewClient(opts)
		if err != nil {
			osutil.Fatal("failed to initialize download client", err)
		}

		driver := archiver.NewDriver(
			archiver.Config{
				StartDate:           start,
				EndDate:             end,
				ResumeCase:          sfcourt.NormalizeCaseNumber(*scrapeResume),
				DownloadConcurrency: *scrapeConcurrency,
			},
			casestore.New(*scrapeDataDir),
			client,
			&browser.ChromeSession{Launcher: &browser.Launcher{
				Port:       *scrapePort,
				ProfileDir: *scrapeProfile,
				ChromePath: *scrapeChrome,
			}},
		)
		if err := driver.Run(cmd.Context()); err != nil {
			osutil.Fatal("scrape job failed", err)
		}
	},
}
