package workflow

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/engine"
	"github.com/shouni/go-scene-kit/pkg/generator"
	"github.com/shouni/go-scene-kit/pkg/runner"
)

// ManagerArgs は Manager の生成に必要な依存関係です。nil のフィールドは既定の実装で補われます。
type ManagerArgs struct {
	Config     config.Config
	HTTPClient *http.Client
	Writer     runner.OutputWriter
	// UploadCache を共有すると、複数の Manager 間で参照画像のアップロードを重複排除できます。
	UploadCache *cache.Cache
}

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg       config.Config
	engine    *engine.Client
	writer    runner.OutputWriter
	generator *generator.SceneGenerator
}

// New は、設定を基に新しい Manager を初期化します。
func New(args ManagerArgs) (*Manager, error) {
	cfg := args.Config
	if strings.TrimSpace(cfg.EngineURL) == "" {
		return nil, fmt.Errorf("推論エンジンの URL は必須です")
	}
	if cfg.MaxWait <= 0 {
		return nil, fmt.Errorf("完了待ちの上限時間が不正です: %s", cfg.MaxWait)
	}

	var opts []engine.Option
	if args.HTTPClient != nil {
		opts = append(opts, engine.WithHTTPClient(args.HTTPClient))
	}
	client := engine.NewFromConfig(cfg, opts...)

	var genOpts []generator.Option
	if args.UploadCache != nil {
		genOpts = append(genOpts, generator.WithUploadCache(args.UploadCache))
	}

	writer := args.Writer
	if writer == nil {
		writer = runner.LocalWriter{}
	}

	return &Manager{
		cfg:       cfg,
		engine:    client,
		writer:    writer,
		generator: generator.NewSceneGenerator(cfg, client, genOpts...),
	}, nil
}

// BuildSceneRunner は、シーン生成を担当する Runner を作成します。
func (m *Manager) BuildSceneRunner() (SceneRunner, error) {
	return runner.NewSceneRunner(m.cfg, m.generator, m.engine, m.writer), nil
}

// Engine は推論エンジンのクライアントを返します。
func (m *Manager) Engine() *engine.Client { return m.engine }

// Generator はシーン生成器を返します。
func (m *Manager) Generator() *generator.SceneGenerator { return m.generator }

// Config は Manager の設定を返します。
func (m *Manager) Config() config.Config { return m.cfg }

var _ Workflow = (*Manager)(nil)
