package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/pkg/asset"
	"github.com/shouni/go-scene-kit/pkg/mask"
)

var maskOpts struct {
	region  string
	width   int
	height  int
	feather int
	output  string
	base64  bool
}

// maskCmd は、領域プリセットからアテンションマスクを1枚書き出すのだ。
var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "領域プリセットのマスク画像（PNG）を生成するのだ。",
	Args:  cobra.NoArgs,
	RunE:  maskCommand,
}

func init() {
	f := maskCmd.Flags()
	f.StringVarP(&maskOpts.region, "region", "r", "center", "領域プリセット ID なのだ。")
	f.IntVar(&maskOpts.width, "width", 0, "キャンバスの幅（省略時は設定値）なのだ。")
	f.IntVar(&maskOpts.height, "height", 0, "キャンバスの高さ（省略時は設定値）なのだ。")
	f.IntVar(&maskOpts.feather, "feather", -1, "境界のぼかし幅（px）なのだ。")
	f.StringVarP(&maskOpts.output, "output", "o", asset.DefaultMaskFileName, "出力ファイルのパスなのだ。")
	f.BoolVar(&maskOpts.base64, "base64", false, "ファイルに書かずに base64 を標準出力に出すのだ。")
}

func maskCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	width, height, feather := cfg.Width, cfg.Height, cfg.Feather
	if maskOpts.width > 0 {
		width = maskOpts.width
	}
	if maskOpts.height > 0 {
		height = maskOpts.height
	}
	if maskOpts.feather >= 0 {
		feather = maskOpts.feather
	}

	m, warning, err := mask.RenderByID(maskOpts.region, maskOpts.region, width, height, feather)
	if err != nil {
		return err
	}
	if warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}

	if maskOpts.base64 {
		s, err := m.Base64()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}

	data, err := m.PNG()
	if err != nil {
		return err
	}
	if err := os.WriteFile(maskOpts.output, data, 0o644); err != nil {
		return fmt.Errorf("マスクの書き込みに失敗しました: %w", err)
	}
	slog.Info("マスクを書き出したのだ",
		"path", maskOpts.output,
		"region", maskOpts.region,
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Int("coverage", m.Coverage()),
	)
	return nil
}
