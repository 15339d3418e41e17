package workflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/shouni/go-scene-kit/pkg/config"
)

func TestNew(t *testing.T) {
	t.Run("URL が空ならエラー", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.EngineURL = " "
		if _, err := New(ManagerArgs{Config: cfg}); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("上限時間が0ならエラー", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.MaxWait = 0
		if _, err := New(ManagerArgs{Config: cfg}); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("HTTP クライアントが注入されること", func(t *testing.T) {
		mt := httpmock.NewMockTransport()
		mt.RegisterResponder("GET", config.DefaultEngineURL+"/system_stats", httpmock.NewStringResponder(200, `{"system":{"os":"posix"}}`))

		m, err := New(ManagerArgs{Config: config.DefaultConfig(), HTTPClient: &http.Client{Transport: mt}})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if !m.Engine().IsAvailable(context.Background()) {
			t.Error("注入したトランスポートが使われていません")
		}
		if m.Engine().BaseURL() != config.DefaultEngineURL {
			t.Errorf("BaseURL が %s です", m.Engine().BaseURL())
		}
		if _, err := m.BuildSceneRunner(); err != nil {
			t.Errorf("BuildSceneRunner() エラー: %v", err)
		}
	})
}
