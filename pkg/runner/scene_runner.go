package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-scene-kit/pkg/asset"
	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/generator"
)

// Downloader は出力画像をエンジンから取得します。
type Downloader interface {
	Download(ctx context.Context, img domain.OutputImage) ([]byte, error)
}

// SceneRunner は、シーン生成の実行と成果物の保存を管理します。
type SceneRunner struct {
	cfg        config.Config
	generator  generator.SceneImageGenerator
	downloader Downloader
	writer     OutputWriter
}

// NewSceneRunner は、依存関係を注入して初期化します。
func NewSceneRunner(
	cfg config.Config,
	generator generator.SceneImageGenerator,
	downloader Downloader,
	writer OutputWriter,
) *SceneRunner {
	return &SceneRunner{
		cfg:        cfg,
		generator:  generator,
		downloader: downloader,
		writer:     writer,
	}
}

// Run は、シーン要求を受け取り画像を生成します。結果の OutputPaths はエンジン上の閲覧URLです。
func (r *SceneRunner) Run(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error) {
	slog.InfoContext(ctx, "Starting scene generation", "characters", req.Characters.Names())

	res, err := r.generator.Generate(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "Scene generation failed", "error", err)
		return nil, err
	}

	for _, w := range res.Warnings {
		slog.WarnContext(ctx, "Scene generation warning", "job_id", res.JobID, "warning", w)
	}
	slog.InfoContext(ctx, "Successfully generated scene", "job_id", res.JobID, "seed", res.UsedSeed, "images", len(res.OutputPaths))
	return res, nil
}

// RunAndSave は、画像を生成して outputDir に scene_<n>.png として保存します。
// outputDir が空の場合は設定の OutputDir を使います。結果の OutputPaths は保存先のパスに置き換えられます。
func (r *SceneRunner) RunAndSave(ctx context.Context, req domain.SceneRequest, outputDir string) (*domain.SceneResult, error) {
	if outputDir == "" {
		outputDir = r.cfg.OutputDir
	}
	res, err := r.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	paths, err := asset.ScenePaths(outputDir, len(res.Outputs))
	if err != nil {
		return nil, err
	}

	for i, img := range res.Outputs {
		data, err := r.downloader.Download(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("第 %d 画像の取得に失敗しました: %w", i+1, err)
		}

		slog.InfoContext(ctx, "シーン画像を保存しています",
			"index", i+1,
			"path", paths[i],
		)
		if err := r.writer.Write(ctx, paths[i], bytes.NewReader(data), "image/png"); err != nil {
			return nil, fmt.Errorf("第 %d 画像の保存に失敗しました (path: %s): %w", i+1, paths[i], err)
		}
	}

	res.OutputPaths = paths
	return res, nil
}
