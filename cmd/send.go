package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/seqgap/internal/synth"
)

var sendFlags struct {
	to             string
	pcap           string
	count          int
	rate           int
	start          uint64
	skipEvery      int
	duplicateEvery int
	reorderEvery   int
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a synthetic spectrometer stream",
	Long: `Send correctly encoded spectrometer payloads over UDP, optionally with
deliberate skips, duplicates and reordering, to validate a capture host
without the FPGA. With --pcap the frames are written to a file instead.

Examples:
  seqgap send --to 10.0.0.1:60000 -n 100000 --rate 50000
  seqgap send --to 127.0.0.1:60000 -n 1000 --skip-every 100
  seqgap send --pcap synthetic.pcap -n 5000 --reorder-every 10`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFlags.to, "to", "", "destination host:port (default 127.0.0.1:<capture.port>)")
	f.StringVar(&sendFlags.pcap, "pcap", "", "write Ethernet frames to this pcap file instead of sending")
	f.IntVarP(&sendFlags.count, "count", "n", 1000, "packets to emit")
	f.IntVar(&sendFlags.rate, "rate", 0, "packets per second, 0 for unpaced")
	f.Uint64Var(&sendFlags.start, "start", 0, "first sequence counter")
	f.IntVar(&sendFlags.skipEvery, "skip-every", 0, "omit every Nth counter")
	f.IntVar(&sendFlags.duplicateEvery, "dup-every", 0, "send every Nth counter twice")
	f.IntVar(&sendFlags.reorderEvery, "reorder-every", 0, "swap every Nth packet with the next")
}

func runSend(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	counters, err := synth.Sequence(synth.Plan{
		Start:          sendFlags.start,
		Count:          sendFlags.count,
		SkipEvery:      sendFlags.skipEvery,
		DuplicateEvery: sendFlags.duplicateEvery,
		ReorderEvery:   sendFlags.reorderEvery,
	})
	if err != nil {
		return err
	}

	if sendFlags.pcap != "" {
		f, err := os.Create(sendFlags.pcap)
		if err != nil {
			return fmt.Errorf("failed to create pcap file: %w", err)
		}
		ep := synth.DefaultEndpoint(uint16(cfg.Capture.Port))
		if err := synth.WritePcap(f, ep, counters, time.Now(), 100*time.Microsecond); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("synthetic pcap written", "path", sendFlags.pcap, "packets", len(counters))
		return nil
	}

	to := sendFlags.to
	if to == "" {
		to = fmt.Sprintf("127.0.0.1:%d", cfg.Capture.Port)
	}
	s, err := synth.Dial(to, sendFlags.rate)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("sending synthetic stream", "to", to, "packets", len(counters), "rate", sendFlags.rate)
	n, err := s.Send(ctx, counters)
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d/%d packets to %s\n", n, len(counters), to)
	return err
}
