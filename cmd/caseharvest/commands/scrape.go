package commands

import (
	"caseharvest/lib/browser"
	"caseharvest/lib/captcha"
	"caseharvest/lib/configutil"
	"caseharvest/lib/notify"
	"caseharvest/lib/restyutil"
	"caseharvest/lib/serviceutil"
	"caseharvest/lib/telemetry"
	"caseharvest/services/benchmark"
	"caseharvest/services/benchmark/db"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	Scrape  benchmark.Config   `json:"scrape"`
	Browser browser.Config     `json:"browser"`
	Smtp    *notify.SmtpConfig `json:"smtp"`
}

var (
	scrapeStartYear   *int
	scrapeEndYear     *int
	scrapeOutput      *string
	scrapeMissing     *int
	scrapeConnect     *int
	scrapeSolve       *bool
	scrapeAttachments *string
)

func init() {
	scrapeStartYear = scrapeCmd.Flags().Int("start-year", 0, "Four digit year to stop before, e.g. 2014.")
	scrapeEndYear = scrapeCmd.Flags().Int("end-year", 0, "Four digit year to start scanning from, e.g. 2021.")
	scrapeOutput = scrapeCmd.Flags().String("output", "", "CSV file to append scraped cases to.")
	scrapeMissing = scrapeCmd.Flags().Int("missing-thresh", 0, "Consecutive missing cases that finish a year.")
	scrapeConnect = scrapeCmd.Flags().Int("connect-thresh", 0, "Attempts granted to every portal wait.")
	scrapeSolve = scrapeCmd.Flags().Bool("solve-challenges", false, "Pay the solving service instead of waiting for a human.")
	scrapeAttachments = scrapeCmd.Flags().String("save-attachments", "", "Which docket attachments to download: none, filing or all.")
	rootCmd.AddCommand(scrapeCmd)
}

// flags beat config.json5, but only when actually given
func applyScrapeFlags(cmd *cobra.Command, cfg *Config) {
	if cmd.Flags().Changed("start-year") {
		cfg.Scrape.StartYear = *scrapeStartYear
	}
	if cmd.Flags().Changed("end-year") {
		cfg.Scrape.EndYear = *scrapeEndYear
	}
	if cmd.Flags().Changed("output") {
		cfg.Scrape.Output = *scrapeOutput
	}
	if cmd.Flags().Changed("missing-thresh") {
		cfg.Scrape.MissingThreshold = *scrapeMissing
	}
	if cmd.Flags().Changed("connect-thresh") {
		cfg.Scrape.ConnectAttempts = *scrapeConnect
	}
	if cmd.Flags().Changed("solve-challenges") {
		cfg.Scrape.SolveChallenges = *scrapeSolve
	}
	if cmd.Flags().Changed("save-attachments") {
		cfg.Scrape.SaveAttachments = *scrapeAttachments
	}
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Walks the portal case by case, appending every case found to the output CSV.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		applyScrapeFlags(cmd, &cfg)

		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)
		if *verbose {
			benchmark.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/portal"))
		}

		rod, err := browser.Launch(ctx, cfg.Browser)
		if err != nil {
			serviceutil.Fatal("failed to launch browser", err)
		}
		defer rod.Close()

		var notifier notify.Notifier = notify.Nop{}
		if cfg.Smtp != nil {
			notifier = notify.NewEmail(*cfg.Smtp)
		}
		var resolver captcha.Resolver
		if cfg.Scrape.SolveChallenges {
			resolver = captcha.NewTwoCaptcha(cfg.Scrape.Solver)
		} else {
			resolver = captcha.Manual{Title: rod.Title, Notifier: notifier}
		}

		sink, err := benchmark.NewCsvSink(cfg.Scrape.Output)
		if err != nil {
			serviceutil.Fatal("failed to open output", err)
		}
		defer sink.Close()

		options := benchmark.ScannerOptions{
			Surface: rod,
			Session: benchmark.NewSession(rod, resolver, benchmark.SessionOptions{
				PortalBase: cfg.Scrape.PortalBase,
				Budget:     cfg.Scrape.ConnectBudget(),
			}),
			Extractor: benchmark.NewExtractor(rod, cfg.Scrape.ConnectBudget(), cfg.Scrape.State, cfg.Scrape.County),
			Sink:      sink,
		}

		if cfg.Scrape.RequestDockets {
			ledger, err := cfg.Scrape.Ledger.OpenDB()
			if err != nil {
				serviceutil.Fatal("failed to open docket ledger", err)
			}
			defer ledger.Close()
			_, err = ledger.ExecContext(ctx, db.Schema)
			if err != nil && !strings.Contains(err.Error(), "already exists") {
				serviceutil.Fatal("failed to initialize docket ledger", err)
			}
			options.Dockets = benchmark.NewDocketRequester(ledger, cfg.Scrape.PortalBase)
		}

		if cfg.Scrape.SaveAttachments != "" && cfg.Scrape.SaveAttachments != benchmark.AttachmentsNone {
			dir := cfg.Scrape.AttachmentDir
			if dir == "" {
				dir = "attachments"
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				serviceutil.Fatal("failed to create attachment directory", err)
			}
			options.Attachments = benchmark.NewAttachmentDownloader(cfg.Scrape.PortalBase, dir, cfg.Scrape.SaveAttachments)
		}

		t1 := time.Now()
		err = benchmark.NewScanner(cfg.Scrape, options).Run(ctx)
		t2 := time.Now()
		if err != nil {
			notifyOutcome(notifier, "caseharvest died", err.Error())
			serviceutil.Fatal("run died", err)
		}

		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
		notifyOutcome(notifier, "caseharvest finished", fmt.Sprintf(
			"every year is exhausted, output is in %s", cfg.Scrape.Output,
		))
	},
}

func notifyOutcome(notifier notify.Notifier, subject string, body string) {
	err := notifier.Notify(context.Background(), subject, body)
	if err != nil {
		slog.Warn("failed to send notice", "subject", subject, "err", err)
	}
}
