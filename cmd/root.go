package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appconfig "github.com/shouni/go-scene-kit/internal/config"
	"github.com/shouni/go-scene-kit/pkg/config"
)

var (
	configPath string
	engineURL  string
	verbose    bool
	opts       appconfig.GenerateOptions
)

var rootCmd = &cobra.Command{
	Use:   "scene-kit",
	Short: "複数キャラクターのシーン画像を推論エンジンで生成するのだ。",
	Long: `参照画像で顔を固定したキャラクターを最大3人まで1枚のシーンに配置するのだ。
マスクとワークフローグラフを組み立てて ComfyUI 互換のエンジンに投入するのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML 設定ファイルのパスなのだ。")
	rootCmd.PersistentFlags().StringVar(&engineURL, "engine-url", "", "推論エンジンの URL（設定ファイルと環境変数より優先）なのだ。")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、コマンド実行前にロガーを設定するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadAppConfig は設定ファイル・環境変数・フラグの順に重ねた設定を返すのだ。
func loadAppConfig() (config.Config, error) {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if engineURL != "" {
		cfg.EngineURL = engineURL
	}
	return cfg, nil
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		generateCmd,
		maskCmd,
		graphCmd,
		regionsCmd,
		statusCmd,
		serveCmd,
	)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
