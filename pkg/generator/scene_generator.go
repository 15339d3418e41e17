package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-scene-kit/pkg/asset"
	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
	"github.com/shouni/go-scene-kit/pkg/engine"
	"github.com/shouni/go-scene-kit/pkg/graph"
	"github.com/shouni/go-scene-kit/pkg/mask"
	"github.com/shouni/go-scene-kit/pkg/region"
)

const (
	defaultRateBurst     = 2
	cacheCleanupInterval = 15 * time.Minute
)

// SceneGenerator は検証から画像取得までの1回のシーン生成を統括します。
// 生成ごとの状態は Generate の呼び出し内に閉じており、共有するのはアップロードキャッシュだけです。
type SceneGenerator struct {
	cfg      config.Config
	composer *SceneComposer
	newToken func() string
}

// Option は SceneGenerator の設定を変更します。
type Option func(*SceneGenerator)

// WithRateLimiter は投入のレート制限を差し替えます。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(g *SceneGenerator) { g.composer.RateLimiter = l }
}

// WithUploadCache は参照画像のアップロードキャッシュを差し替えます。
func WithUploadCache(c *cache.Cache) Option {
	return func(g *SceneGenerator) { g.composer.uploadCache = c }
}

// WithReferenceReader は参照画像の読み込み方法を差し替えます。
func WithReferenceReader(read func(path string) ([]byte, error)) Option {
	return func(g *SceneGenerator) { g.composer.readFile = read }
}

// WithJobToken はマスクのアップロード名に含めるトークンの生成方法を差し替えます。
func WithJobToken(f func() string) Option {
	return func(g *SceneGenerator) { g.newToken = f }
}

// NewSceneGenerator は設定と推論エンジンから SceneGenerator を生成します。
func NewSceneGenerator(cfg config.Config, eng Engine, opts ...Option) *SceneGenerator {
	limiter := rate.NewLimiter(rate.Inf, defaultRateBurst)
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), defaultRateBurst)
	}
	composer := NewSceneComposer(eng, limiter, cache.New(cfg.UploadCacheTTL, cacheCleanupInterval))
	composer.StagingDir = cfg.StagingDir
	composer.UploadTimeout = cfg.RequestTimeout
	if cfg.ReferenceDir != "" {
		composer.ReferenceDir = cfg.ReferenceDir
		composer.readFile = rootedReader(cfg.ReferenceDir)
	}

	g := &SceneGenerator{
		cfg:      cfg,
		composer: composer,
		newToken: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Composer はアップロード管理を返します。
func (g *SceneGenerator) Composer() *SceneComposer { return g.composer }

// Generate はシーン要求から画像を生成し、出力の場所と使用したシードを返します。
// 失敗は全て *StageError として返されます。途中までにアップロードしたファイルは削除しません。
func (g *SceneGenerator) Generate(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error) {
	if err := req.Validate(); err != nil {
		return nil, stageErr(StageValidate, err)
	}
	req, err := g.resolveReferences(req)
	if err != nil {
		return nil, stageErr(StageValidate, err)
	}

	var warnings []string
	scene, dropped := dropOffScreen(req)
	for _, name := range dropped {
		warnings = append(warnings, fmt.Sprintf("%s is off-screen and was left out of the scene", name))
		slog.WarnContext(ctx, "画面外のキャラクターを除外します", "name", name)
	}
	if len(scene.Characters) == 0 {
		return nil, stageErr(StageValidate, &domain.ValidationError{Field: "characters", Reason: "all characters are off-screen"})
	}

	if _, err := g.composer.Engine.SystemStats(ctx); err != nil {
		return nil, stageErr(StageHealth, err)
	}

	placements := make([]region.Placement, len(scene.Characters))
	for i, c := range scene.Characters {
		placements[i] = region.Placement{Name: c.Name, Region: c.Region}
	}
	assignments, err := region.AutoAssign(placements)
	if err != nil {
		return nil, stageErr(StageAssign, err)
	}
	slots, err := scene.Characters.Slots(region.Regions(assignments))
	if err != nil {
		return nil, stageErr(StageAssign, err)
	}

	params := graph.NewParams(g.cfg).Apply(scene)
	feather := g.cfg.Feather
	if scene.Feather != nil {
		feather = *scene.Feather
	}

	logger := slog.With("seed", params.Seed, slog.Int("characters", len(slots)))
	logger.InfoContext(ctx, "シーン生成を開始します", "width", params.Width, "height", params.Height, "regions", region.Regions(assignments))

	token := g.newToken()
	maskNames, refNames, maskWarnings, err := g.stageAssets(ctx, token, slots, params.Width, params.Height, feather)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, maskWarnings...)

	wf, err := graph.Build(scene, maskNames, refNames, params)
	if err != nil {
		return nil, stageErr(StageBuild, err)
	}
	g.composer.StageGraph(ctx, wf, token)

	if err := g.composer.RateLimiter.Wait(ctx); err != nil {
		return nil, stageErr(StageSubmit, waitError(ctx, err))
	}
	job, err := g.composer.Engine.Submit(ctx, wf)
	if err != nil {
		return nil, stageErr(StageSubmit, err)
	}

	images, err := g.composer.Engine.AwaitCompletion(ctx, job, scene.Timeout())
	if err != nil {
		return nil, stageErr(StageAwait, err)
	}

	result := &domain.SceneResult{
		JobID:       job.ID,
		Outputs:     images,
		UsedSeed:    params.Seed,
		Assignments: slots,
		Warnings:    warnings,
	}
	for _, img := range images {
		result.OutputPaths = append(result.OutputPaths, g.composer.Engine.ViewURL(img))
	}
	logger.InfoContext(ctx, "シーン生成が完了しました", "job_id", job.ID, slog.Int("images", len(images)))
	return result, nil
}

// stageAssets はキャラクターごとに参照画像のアップロードとマスクの生成・アップロードを並列に行います。
func (g *SceneGenerator) stageAssets(ctx context.Context, token string, slots []domain.CharacterSlot, width, height, feather int) (maskNames, refNames, warnings []string, err error) {
	maskNames = make([]string, len(slots))
	refNames = make([]string, len(slots))
	slotWarnings := make([]string, len(slots))

	eg, egCtx := errgroup.WithContext(ctx)

	for i, slot := range slots {
		eg.Go(func() error {
			name, err := g.composer.UploadReference(egCtx, slot.ReferenceImagePath)
			if err != nil {
				return stageErr(StageUploadReference, fmt.Errorf("character %s: %w", slot.Name, err))
			}
			refNames[i] = name
			return nil
		})

		eg.Go(func() error {
			m, warning, err := mask.RenderByID(slot.Name, slot.Region, width, height, feather)
			if err != nil {
				return stageErr(StageRenderMask, fmt.Errorf("character %s: %w", slot.Name, err))
			}
			slotWarnings[i] = warning
			name, err := g.composer.UploadMask(egCtx, m, asset.MaskUploadName(token, i, slot.Name))
			if err != nil {
				return stageErr(StageUploadMask, fmt.Errorf("character %s: %w", slot.Name, err))
			}
			maskNames[i] = name
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, nil, err
	}
	for _, w := range slotWarnings {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return maskNames, refNames, warnings, nil
}

// resolveReferences は参照画像のパスを解決したリクエストを返します。呼び出し元のスライスは変更しません。
func (g *SceneGenerator) resolveReferences(req domain.SceneRequest) (domain.SceneRequest, error) {
	chars := slices.Clone(req.Characters)
	for i := range chars {
		p, err := g.composer.ResolveReference(chars[i].ReferenceImagePath)
		if err != nil {
			return req, &domain.ValidationError{Field: fmt.Sprintf("characters[%d].reference_image_path", i), Reason: err.Error()}
		}
		chars[i].ReferenceImagePath = p
	}
	req.Characters = chars
	return req, nil
}

// waitError は投入枠の待機の失敗を、エンジン呼び出しと同じキャンセル・タイムアウトのエラーに揃えます。
// 期限内に枠が空かないと判断された場合もタイムアウトとして扱います。
func waitError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: waiting for submit slot", engine.ErrCancelled)
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: waiting for submit slot: %v", engine.ErrTimedOut, err)
	}
	return err
}

// dropOffScreen は画面外と明示されたキャラクターを除いたリクエストと、除外した名前を返します。
func dropOffScreen(req domain.SceneRequest) (domain.SceneRequest, []string) {
	var kept domain.Characters
	var dropped []string
	for _, c := range req.Characters {
		if region.IsOffScreen(c.Region) {
			dropped = append(dropped, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	req.Characters = kept
	return req, dropped
}
