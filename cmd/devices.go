package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firestige.xyz/seqgap/internal/source"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, closeLog, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		defer closeLog()

		devs, err := source.ListDevices()
		if err != nil {
			return err
		}
		return printDevices(cmd.OutOrStdout(), devs)
	},
}

func printDevices(w io.Writer, devs []source.Device) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESSES\tDESCRIPTION")
	for _, d := range devs {
		addrs := strings.Join(d.Addresses, ",")
		if addrs == "" {
			addrs = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, addrs, d.Description)
	}
	return tw.Flush()
}
