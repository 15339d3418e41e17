package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-scene-kit/examples"
	appconfig "github.com/shouni/go-scene-kit/internal/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/workflow"
)

// generateCmd は、シーン画像を1枚生成して保存するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "キャラクターを配置したシーン画像を生成するのだ。",
	Long: `--char で指定したキャラクター（最大3人）の参照画像を使ってシーンを生成するのだ。
書式は name=path[@region] で、region を省略すると人数に応じて自動で割り当てるのだよ。`,
	Example: `  scene-kit generate -p "two friends at a cafe" -c Aki=refs/aki.png@left -c Ren=refs/ren.png@right --seed 42`,
	Args:    cobra.NoArgs,
	RunE:    generateCommand,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&opts.RequestFile, "request", "r", "", "SceneRequest の JSON ファイル（'-'で標準入力）。フラグの値で上書きするのだ。")
	f.StringVarP(&opts.Prompt, "prompt", "p", "", "シーン全体のプロンプトなのだ。")
	f.StringVar(&opts.NegativePrompt, "negative", "", "ネガティブプロンプト（省略時は設定の既定値）なのだ。")
	f.StringArrayVarP(&opts.Characters, "char", "c", nil, "キャラクター指定 name=path[@region]（複数指定可）なのだ。")
	f.Int64Var(&opts.Seed, "seed", -1, "シード値（負数ならランダム）なのだ。")
	f.IntVar(&opts.Steps, "steps", 0, "サンプリングステップ数なのだ。")
	f.Float64Var(&opts.CFG, "cfg", 0, "CFG スケールなのだ。")
	f.IntVar(&opts.Width, "width", 0, "キャンバスの幅（8の倍数）なのだ。")
	f.IntVar(&opts.Height, "height", 0, "キャンバスの高さ（8の倍数）なのだ。")
	f.IntVar(&opts.Feather, "feather", -1, "マスク境界のぼかし幅（px）なのだ。")
	f.DurationVar(&opts.Timeout, "timeout", 0, "完了待ちのタイムアウト（上限は設定の max_wait）なのだ。")
	f.StringVarP(&opts.OutputDir, "out", "o", "", "画像の保存先ディレクトリ（省略時は設定の output_dir）なのだ。")
	f.BoolVar(&opts.NoSave, "no-save", false, "ダウンロードせずに閲覧 URL だけを表示するのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildSceneRequest(opts)
	if err != nil {
		return err
	}
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	manager, err := workflow.New(workflow.ManagerArgs{Config: cfg})
	if err != nil {
		return err
	}
	runner, err := manager.BuildSceneRunner()
	if err != nil {
		return err
	}

	slog.Info("シーン生成パイプラインを起動するのだ！",
		"engine", cfg.EngineURL,
		"characters", req.Characters.Names(),
	)

	var result *domain.SceneResult
	if opts.NoSave {
		result, err = runner.Run(ctx, req)
	} else {
		result, err = runner.RunAndSave(ctx, req, opts.OutputDir)
	}
	if err != nil {
		return fmt.Errorf("シーン生成中にエラーが発生したのだ: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// buildSceneRequest は CLI オプションから SceneRequest を組み立てるのだ。
// --request があればそれを土台にし、指定されたフラグだけで上書きする。未指定の値は nil のまま残す。
func buildSceneRequest(o appconfig.GenerateOptions) (domain.SceneRequest, error) {
	var req domain.SceneRequest
	if o.RequestFile != "" {
		loaded, err := examples.LoadSceneRequest(o.RequestFile)
		if err != nil {
			return req, err
		}
		req = loaded
	}
	if o.Prompt != "" {
		req.PositivePrompt = o.Prompt
	}
	if o.NegativePrompt != "" {
		req.NegativePrompt = o.NegativePrompt
	}
	if len(o.Characters) > 0 {
		req.Characters = nil
	}
	for _, arg := range o.Characters {
		c, err := parseCharacter(arg)
		if err != nil {
			return req, err
		}
		req.Characters = append(req.Characters, c)
	}

	if o.Seed >= 0 {
		req.Seed = domain.Ptr(o.Seed)
	}
	if o.Steps > 0 {
		req.Steps = domain.Ptr(o.Steps)
	}
	if o.CFG > 0 {
		req.CFG = domain.Ptr(o.CFG)
	}
	if o.Width > 0 {
		req.Width = domain.Ptr(o.Width)
	}
	if o.Height > 0 {
		req.Height = domain.Ptr(o.Height)
	}
	if o.Feather >= 0 {
		req.Feather = domain.Ptr(o.Feather)
	}
	if o.Timeout > 0 {
		req.TimeoutSecs = domain.Ptr(int((o.Timeout + time.Second - 1) / time.Second))
	}
	return req, nil
}

// parseCharacter は name=path[@region] 形式のキャラクター指定を解析するのだ。
// パスに '@' が含まれる場合は、最後の '@' 以降にパス区切りがなければ領域として扱う。
func parseCharacter(arg string) (domain.Character, error) {
	name, rest, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(rest) == "" {
		return domain.Character{}, fmt.Errorf("キャラクター指定 %q は name=path[@region] の形式で指定してほしいのだ", arg)
	}

	path, region := rest, ""
	if i := strings.LastIndex(rest, "@"); i >= 0 && !strings.ContainsAny(rest[i+1:], `/\`) {
		path, region = rest[:i], rest[i+1:]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.Character{}, fmt.Errorf("キャラクター %s の参照画像パスが空なのだ", name)
	}
	return domain.Character{
		Name:               name,
		ReferenceImagePath: path,
		Region:             strings.TrimSpace(region),
	}, nil
}
