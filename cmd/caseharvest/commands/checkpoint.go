package commands

import (
	"caseharvest/lib/configutil"
	"caseharvest/lib/serviceutil"
	"caseharvest/services/benchmark"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var checkpointOutput *string

func init() {
	checkpointOutput = checkpointCmd.Flags().String("output", "", "CSV file to inspect instead of the configured one.")
	rootCmd.AddCommand(checkpointCmd)
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint [--output <path/to/output.csv>]",
	Short: "Shows where the next scrape run would resume from.",
	Run: func(cmd *cobra.Command, args []string) {
		output := *checkpointOutput
		if output == "" {
			cfg, err := configutil.ReadConfig[Config]("config.json5")
			if err != nil {
				serviceutil.Fatal("failed to read config", err)
			}
			output = cfg.Scrape.Output
		}

		checkpoint, resuming, err := benchmark.RecoverCheckpoint(output)
		if err != nil {
			serviceutil.Fatal("failed to recover checkpoint", err)
		}
		if !resuming {
			fmt.Printf("%s does not exist yet, the next run starts fresh\n", output)
			return
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Year", "Last Sequence", "Suffix Stripped"})
		t.AppendRow(table.Row{checkpoint.Year, checkpoint.Sequence, checkpoint.Stripped})
		t.Render()
	},
}
