package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/region"
)

// regionsCmd は、利用できる領域プリセットを一覧表示するのだ。
var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "領域プリセットの一覧を表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tX\tY\tW\tH")
		for _, p := range region.Presets() {
			fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%.3f\n", p.ID, p.X, p.Y, p.W, p.H)
		}
		fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", domain.OffScreen)
		return tw.Flush()
	},
}
