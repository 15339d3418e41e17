package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/pkg/engine"
)

// statusCmd は、推論エンジンに到達できるかを確認するのだ。
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "推論エンジンの状態を表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		client := engine.NewFromConfig(cfg)
		stats, err := client.SystemStats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "engine:  %s\n", client.BaseURL())
		fmt.Fprintf(out, "version: %s\n", stats.System.ComfyUIVersion)
		for _, d := range stats.Devices {
			fmt.Fprintf(out, "device:  %s (%s) vram %d/%d MiB free\n", d.Name, d.Type, d.VRAMFree>>20, d.VRAMTotal>>20)
		}
		return nil
	},
}
