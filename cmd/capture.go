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

var captureFlags struct {
	device        string
	backend       string
	port          int
	count         int
	bufferSize    int
	format        string
	chart         string
	decodeSamples bool
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the live stream and report sequence gaps",
	Long: `Capture a fixed number of spectrometer packets from a live interface and
print the sequence gap histogram.

Examples:
  seqgap capture                                 # enp129s0f0, port 60000, 1,000,000 packets
  seqgap capture -i eth1 -n 50000                # smaller run on eth1
  seqgap capture --backend afpacket --format json
  seqgap capture -c seqgap.yml --chart gaps.html

Ctrl-C stops early and reports what was captured so far.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	f := captureCmd.Flags()
	f.StringVarP(&captureFlags.device, "device", "i", "", "capture interface")
	f.StringVar(&captureFlags.backend, "backend", "", "capture backend (pcap, afpacket)")
	f.IntVarP(&captureFlags.port, "port", "p", 0, "UDP destination port")
	f.IntVarP(&captureFlags.count, "count", "n", 0, "packets to accept before stopping")
	f.IntVar(&captureFlags.bufferSize, "buffer-size", 0, "kernel capture buffer in bytes")
	f.StringVarP(&captureFlags.format, "format", "o", "", "report format (text, json, yaml)")
	f.StringVar(&captureFlags.chart, "chart", "", "write an HTML histogram chart to this path")
	f.BoolVar(&captureFlags.decodeSamples, "decode-samples", false, "decode the sample block of every packet")
}

// captureOverrides copies explicitly set flags over the loaded config.
func captureOverrides(cmd *cobra.Command) func(*config.GlobalConfig) {
	return func(cfg *config.GlobalConfig) {
		f := cmd.Flags()
		if f.Changed("device") {
			cfg.Capture.Device = captureFlags.device
		}
		if f.Changed("backend") {
			cfg.Capture.Backend = captureFlags.backend
		}
		if f.Changed("port") {
			cfg.Capture.Port = captureFlags.port
		}
		if f.Changed("count") {
			cfg.Capture.TargetPackets = captureFlags.count
		}
		if f.Changed("buffer-size") {
			cfg.Capture.BufferSize = captureFlags.bufferSize
		}
		if f.Changed("format") {
			cfg.Report.Format = captureFlags.format
		}
		if f.Changed("chart") {
			cfg.Report.Chart = captureFlags.chart
		}
		if f.Changed("decode-samples") {
			cfg.Capture.DecodeSamples = captureFlags.decodeSamples
		}
	}
}

func runCapture(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := loadConfig(cmd, captureOverrides(cmd))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopMetrics, err := startMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	defer stopMetrics()

	opts := sourceOptions(cfg.Capture)
	src, err := source.Open(cfg.Capture.Backend, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	meta := report.Meta{
		Interface: cfg.Capture.Device,
		Source:    cfg.Capture.Backend,
		Filter:    opts.FilterExpr(),
	}
	_, err = runAnalysis(ctx, src, loopConfig(cfg.Capture, cfg.Capture.Device), meta, cfg.Report, cmd.OutOrStdout())
	return err
}
