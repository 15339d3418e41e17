package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-scene-kit/pkg/config"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("パス未指定なら既定値", func(t *testing.T) {
		got, err := LoadConfig("")
		if err != nil {
			t.Fatalf("予期せぬエラー: %v", err)
		}
		if diff := cmp.Diff(config.DefaultConfig(), got); diff != "" {
			t.Errorf("既定値と一致しません (-want +got):\n%s", diff)
		}
	})

	t.Run("ファイルの値で上書き", func(t *testing.T) {
		path := writeTOML(t, `
[engine]
url = "http://gpu-box:8188"
max_wait = "5m"

[canvas]
width = 1024
height = 576
feather = 16

[models]
lora = ""

[generation]
rate_interval = "2s"
reference_dir = "/srv/portraits"
`)
		got, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("予期せぬエラー: %v", err)
		}
		want := config.DefaultConfig()
		want.EngineURL = "http://gpu-box:8188"
		want.MaxWait = 5 * time.Minute
		want.Width = 1024
		want.Height = 576
		want.Feather = 16
		want.LoRA = ""
		want.RateInterval = 2 * time.Second
		want.ReferenceDir = "/srv/portraits"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("設定が一致しません (-want +got):\n%s", diff)
		}
	})

	t.Run("未知の項目はエラー", func(t *testing.T) {
		path := writeTOML(t, "[engine]\nurl = \"http://x\"\nbogus = 1\n")
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "engine.bogus") {
			t.Fatalf("未知の項目のエラーを期待しましたが %v", err)
		}
	})

	t.Run("不正な時間指定はエラー", func(t *testing.T) {
		path := writeTOML(t, "[engine]\npoll_interval = \"soon\"\n")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("エラーを期待しましたが nil でした")
		}
	})

	t.Run("存在しないファイルはエラー", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Fatal("エラーを期待しましたが nil でした")
		}
	})

	t.Run("環境変数はファイルより優先", func(t *testing.T) {
		path := writeTOML(t, "[canvas]\nwidth = 1024\n")
		t.Setenv("COMFYUI_URL", "http://env-engine:9000")
		t.Setenv("SCENE_WIDTH", "768")
		t.Setenv("SCENE_MAX_WAIT", "30s")
		t.Setenv("SCENE_REFERENCE_DIR", "/data/refs")
		got, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("予期せぬエラー: %v", err)
		}
		if got.EngineURL != "http://env-engine:9000" {
			t.Errorf("EngineURL: got %q", got.EngineURL)
		}
		if got.Width != 768 {
			t.Errorf("Width: got %d, want 768", got.Width)
		}
		if got.MaxWait != 30*time.Second {
			t.Errorf("MaxWait: got %v", got.MaxWait)
		}
		if got.ReferenceDir != "/data/refs" {
			t.Errorf("ReferenceDir: got %q", got.ReferenceDir)
		}
	})

	t.Run("解析できない環境変数は無視", func(t *testing.T) {
		t.Setenv("SCENE_STEPS", "many")
		t.Setenv("SCENE_POLL_INTERVAL", "fast")
		got, err := LoadConfig("")
		if err != nil {
			t.Fatalf("予期せぬエラー: %v", err)
		}
		if got.Steps != config.DefaultSteps {
			t.Errorf("Steps: got %d, want %d", got.Steps, config.DefaultSteps)
		}
		if got.PollInterval != config.DefaultPollInterval {
			t.Errorf("PollInterval: got %v", got.PollInterval)
		}
	})
}
