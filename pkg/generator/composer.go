package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/shouni/go-scene-kit/pkg/asset"
	"github.com/shouni/go-scene-kit/pkg/graph"
	"github.com/shouni/go-scene-kit/pkg/mask"
)

// SceneComposer は参照画像とマスクのエンジンへのアップロードを管理します。
// 参照画像は内容ハッシュで重複排除し、同じ肖像画はキャッシュの有効期間中1回だけアップロードします。
type SceneComposer struct {
	Engine      Engine
	RateLimiter *rate.Limiter
	StagingDir  string

	// ReferenceDir が空でなければ、参照画像はこのディレクトリ配下のファイルに限られます。
	ReferenceDir  string
	// UploadTimeout は共有アップロード1回あたりの上限時間です。0 以下なら上限を設けません。
	UploadTimeout time.Duration

	uploadCache *cache.Cache // 内容ハッシュ -> エンジン上のファイル名
	uploadGroup singleflight.Group
	readFile    func(string) ([]byte, error)
}

// NewSceneComposer は SceneComposer の新しいインスタンスを初期化済みの状態で生成します。
func NewSceneComposer(eng Engine, limiter *rate.Limiter, uploadCache *cache.Cache) *SceneComposer {
	return &SceneComposer{
		Engine:      eng,
		RateLimiter: limiter,
		uploadCache: uploadCache,
		readFile:    os.ReadFile,
	}
}

// ResolveReference は参照画像のパスを読み込み用のパスに解決します。
// ReferenceDir が空ならそのまま返し、配下から外れるパスはエラーになります。
func (sc *SceneComposer) ResolveReference(path string) (string, error) {
	if sc.ReferenceDir == "" {
		return path, nil
	}
	rel := path
	if filepath.IsAbs(path) {
		dir, err := filepath.Abs(sc.ReferenceDir)
		if err != nil {
			return "", fmt.Errorf("参照画像ディレクトリの解決に失敗しました: %w", err)
		}
		if r, err := filepath.Rel(dir, path); err == nil {
			rel = r
		}
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%q is outside the reference directory", path)
	}
	return filepath.Join(sc.ReferenceDir, rel), nil
}

// UploadReference は参照画像を読み込み、未アップロードであればエンジンにアップロードします。
//
// 同じ内容のアップロードは呼び出し元の間で共有されます。共有中のアップロードは
// 呼び出し元のキャンセルから切り離して実行し、キャンセルした呼び出し元だけが ctx.Err() で戻ります。
func (sc *SceneComposer) UploadReference(ctx context.Context, path string) (string, error) {
	data, err := sc.readFile(path)
	if err != nil {
		return "", fmt.Errorf("参照画像の読み込みに失敗しました (%s): %w", path, err)
	}
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	if name, ok := sc.cached(key); ok {
		slog.DebugContext(ctx, "アップロード済みの参照画像を再利用します", "path", path, "stored", name)
		return name, nil
	}

	ch := sc.uploadGroup.DoChan(key, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンがアップロードを完了させている可能性があるため、再度確認
		if name, ok := sc.cached(key); ok {
			return name, nil
		}
		uploadCtx, cancel := sc.detached(ctx)
		defer cancel()

		stored, uploadErr := sc.Engine.Upload(uploadCtx, data, asset.ReferenceUploadName(key, path))
		if uploadErr != nil {
			return nil, uploadErr
		}
		sc.uploadCache.SetDefault(key, stored)
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		name, ok := res.Val.(string)
		if !ok {
			return "", fmt.Errorf("unexpected return type from singleflight: %T", res.Val)
		}
		return name, nil
	}
}

// detached は ctx の値を引き継ぎ、キャンセルだけを切り離したコンテキストを返します。
func (sc *SceneComposer) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if sc.UploadTimeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, sc.UploadTimeout)
}

func (sc *SceneComposer) cached(key string) (string, bool) {
	v, ok := sc.uploadCache.Get(key)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// UploadMask はマスクを PNG にエンコードしてアップロードします。StagingDir が設定されていればローカルにも保存します。
func (sc *SceneComposer) UploadMask(ctx context.Context, m *mask.Mask, name string) (string, error) {
	data, err := m.PNG()
	if err != nil {
		return "", err
	}
	if sc.StagingDir != "" {
		if err := writeStaged(sc.StagingDir, name, data); err != nil {
			slog.WarnContext(ctx, "マスクのステージングに失敗しました", "dir", sc.StagingDir, "name", name, "error", err)
		}
	}
	return sc.Engine.Upload(ctx, data, name)
}

// StageGraph は投入するワークフローグラフを StagingDir に JSON で保存します。StagingDir が空なら何もしません。
func (sc *SceneComposer) StageGraph(ctx context.Context, g *graph.Graph, token string) {
	if sc.StagingDir == "" {
		return
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err == nil {
		err = writeStaged(sc.StagingDir, "scene_"+token+"_"+asset.DefaultGraphFileName, data)
	}
	if err != nil {
		slog.WarnContext(ctx, "ワークフローグラフのステージングに失敗しました", "dir", sc.StagingDir, "error", err)
	}
}

// rootedReader は dir の外へ辿るシンボリックリンクを拒否して path を読み込む関数を返します。
func rootedReader(dir string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, err
		}
		root, err := os.OpenRoot(dir)
		if err != nil {
			return nil, err
		}
		defer root.Close()
		return root.ReadFile(rel)
	}
}

func writeStaged(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// ForgetUploads はアップロード済み参照画像のキャッシュを破棄します。エンジンの再起動後などに使います。
func (sc *SceneComposer) ForgetUploads() {
	sc.uploadCache.Flush()
}
