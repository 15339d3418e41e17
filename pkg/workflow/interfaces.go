package workflow

import (
	"context"

	"github.com/shouni/go-scene-kit/pkg/domain"
)

// Workflow は、シーン生成ワークフローの各工程を担当する Runner を構築するためのインターフェースを定義します。
type Workflow interface {
	BuildSceneRunner() (SceneRunner, error)
}

// SceneRunner は、シーン要求から画像を生成し、必要に応じて保存する責務を持ちます。
type SceneRunner interface {
	Run(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error)
	RunAndSave(ctx context.Context, req domain.SceneRequest, outputDir string) (*domain.SceneResult, error)
}
