package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
)

type stubGenerator struct {
	res *domain.SceneResult
	err error
}

func (s stubGenerator) Generate(ctx context.Context, req domain.SceneRequest) (*domain.SceneResult, error) {
	return s.res, s.err
}

type stubDownloader map[string][]byte

func (s stubDownloader) Download(ctx context.Context, img domain.OutputImage) ([]byte, error) {
	b, ok := s[img.Filename]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func sceneResult() *domain.SceneResult {
	return &domain.SceneResult{
		JobID:       "job-1",
		OutputPaths: []string{"http://engine.test/view?filename=a.png", "http://engine.test/view?filename=b.png"},
		Outputs:     []domain.OutputImage{{Filename: "a.png"}, {Filename: "b.png"}},
		UsedSeed:    9,
	}
}

func TestSceneRunner_RunAndSave(t *testing.T) {
	dir := t.TempDir()
	r := NewSceneRunner(config.DefaultConfig(), stubGenerator{res: sceneResult()},
		stubDownloader{"a.png": []byte("AAA"), "b.png": []byte("BBB")}, LocalWriter{})

	res, err := r.RunAndSave(context.Background(), domain.SceneRequest{}, dir)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(res.OutputPaths) != 2 {
		t.Fatalf("保存先の数が %d です", len(res.OutputPaths))
	}
	for i, want := range []string{"AAA", "BBB"} {
		if filepath.Base(res.OutputPaths[i]) != []string{"scene_1.png", "scene_2.png"}[i] {
			t.Errorf("想定外のファイル名: %s", res.OutputPaths[i])
		}
		got, err := os.ReadFile(res.OutputPaths[i])
		if err != nil {
			t.Fatalf("保存されたファイルを読めません: %v", err)
		}
		if string(got) != want {
			t.Errorf("期待値 %s, 実際の値 %s", want, got)
		}
	}
}

func TestSceneRunner_Errors(t *testing.T) {
	t.Run("生成エラーはそのまま返す", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewSceneRunner(config.DefaultConfig(), stubGenerator{err: boom}, stubDownloader{}, LocalWriter{})
		if _, err := r.Run(context.Background(), domain.SceneRequest{}); !errors.Is(err, boom) {
			t.Errorf("期待したエラーではありません: %v", err)
		}
	})

	t.Run("ダウンロード失敗", func(t *testing.T) {
		r := NewSceneRunner(config.DefaultConfig(), stubGenerator{res: sceneResult()}, stubDownloader{}, LocalWriter{})
		if _, err := r.RunAndSave(context.Background(), domain.SceneRequest{}, t.TempDir()); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})
}
