package generator

import (
	"context"
	"time"

	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/engine"
	"github.com/shouni/go-scene-kit/pkg/graph"
)

// Engine は SceneGenerator が利用する推論エンジンの操作です。*engine.Client が実装します。
type Engine interface {
	SystemStats(ctx context.Context) (*engine.SystemStats, error)
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Submit(ctx context.Context, g *graph.Graph) (*domain.GenerationJob, error)
	AwaitCompletion(ctx context.Context, job *domain.GenerationJob, timeout time.Duration) ([]domain.OutputImage, error)
	ViewURL(img domain.OutputImage) string
}

// SceneImageGenerator は、シーン要求から1枚のマルチキャラクター画像を生成する責務を持ちます。
type SceneImageGenerator interface {
	Generate(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error)
}

var _ Engine = (*engine.Client)(nil)
