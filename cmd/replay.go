package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/seqgap/internal/config"
	"firestige.xyz/seqgap/internal/report"
	"firestige.xyz/seqgap/internal/source"
)

var replayFlags struct {
	port   int
	count  int
	format string
	chart  string
}

var replayCmd = &cobra.Command{
	Use:   "replay <file.pcap>",
	Short: "Analyse sequence gaps in a recorded pcap file",
	Long: `Replay a pcap file through the same filter, size check and gap analysis as
a live capture. The report is marked partial when the file holds fewer
matching packets than the target count.

Examples:
  seqgap replay dump.pcap -n 20000
  seqgap replay dump.pcap --port 4660 --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.IntVarP(&replayFlags.port, "port", "p", 0, "UDP destination port")
	f.IntVarP(&replayFlags.count, "count", "n", 0, "packets to accept before stopping")
	f.StringVarP(&replayFlags.format, "format", "o", "", "report format (text, json, yaml)")
	f.StringVar(&replayFlags.chart, "chart", "", "write an HTML histogram chart to this path")
}

func replayOverrides(cmd *cobra.Command) func(*config.GlobalConfig) {
	return func(cfg *config.GlobalConfig) {
		f := cmd.Flags()
		if f.Changed("port") {
			cfg.Capture.Port = replayFlags.port
		}
		if f.Changed("count") {
			cfg.Capture.TargetPackets = replayFlags.count
		}
		if f.Changed("format") {
			cfg.Report.Format = replayFlags.format
		}
		if f.Changed("chart") {
			cfg.Report.Chart = replayFlags.chart
		}
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig(cmd, replayOverrides(cmd))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := args[0]
	opts := sourceOptions(cfg.Capture)
	src, err := source.OpenFile(path, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	meta := report.Meta{
		Source: "file:" + path,
		Filter: opts.FilterExpr(),
	}
	_, err = runAnalysis(ctx, src, loopConfig(cfg.Capture, "file"), meta, cfg.Report, cmd.OutOrStdout())
	return err
}
