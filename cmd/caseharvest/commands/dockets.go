package commands

import (
	"caseharvest/lib/configutil"
	"caseharvest/lib/serviceutil"
	"caseharvest/lib/timezone"
	"caseharvest/services/benchmark/db"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(docketsCmd)
}

var docketsCmd = &cobra.Command{
	Use:   "dockets",
	Short: "Lists every docket image request filed against the portal so far.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		ledger, err := cfg.Scrape.Ledger.OpenDB()
		if err != nil {
			serviceutil.Fatal("failed to open docket ledger", err)
		}
		defer ledger.Close()

		rows, err := db.New(ledger).ListRequestedDockets(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list requested dockets", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Requested At", "Case", "Docket", "Entry"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				time.Unix(row.RequestedAt, 0).In(timezone.Location).Format(time.ANSIC),
				row.CaseNumber,
				row.DocketID,
				row.DocketText,
			})
		}
		t.Render()
	},
}
