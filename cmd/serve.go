package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/internal/server"
	"github.com/shouni/go-scene-kit/pkg/workflow"
)

var (
	serveAddr         string
	serveReferenceDir string
)

// serveCmd は、シーン生成を HTTP サービスとして公開するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP サーバーを起動するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		cfg.ReferenceDir = serveReferenceRoot(cfg.ReferenceDir)
		slog.Info("参照画像はこのディレクトリ配下に限定するのだ", "dir", cfg.ReferenceDir)
		manager, err := workflow.New(workflow.ManagerArgs{Config: cfg})
		if err != nil {
			return err
		}
		runner, err := manager.BuildSceneRunner()
		if err != nil {
			return err
		}
		return server.New(runner, manager.Engine()).ListenAndServe(cmd.Context(), serveAddr)
	},
}

// serveReferenceRoot は HTTP 経由の参照画像パスを閉じ込めるディレクトリを決めるのだ。
// 何も指定されなければカレントディレクトリなのだ。
func serveReferenceRoot(configured string) string {
	if serveReferenceDir != "" {
		return serveReferenceDir
	}
	if configured != "" {
		return configured
	}
	return "."
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "待ち受けアドレスなのだ。")
	serveCmd.Flags().StringVar(&serveReferenceDir, "reference-dir", "", "参照画像を置くディレクトリなのだ。設定ファイルより優先するのだ。")
}
