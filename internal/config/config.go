package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-scene-kit/pkg/config"
)

// fileConfig は TOML 設定ファイルの構造です。時間は "1s" や "2m" の文字列で指定します。
type fileConfig struct {
	Engine struct {
		URL             string `toml:"url"`
		PollInterval    string `toml:"poll_interval"`
		MaxWait         string `toml:"max_wait"`
		HealthTimeout   string `toml:"health_timeout"`
		RequestTimeout  string `toml:"request_timeout"`
		DownloadRetries uint64 `toml:"download_retries"`
	} `toml:"engine"`

	Canvas struct {
		Width   int `toml:"width"`
		Height  int `toml:"height"`
		Feather int `toml:"feather"`
	} `toml:"canvas"`

	Sampling struct {
		Steps          int     `toml:"steps"`
		CFG            float64 `toml:"cfg"`
		Sampler        string  `toml:"sampler"`
		Scheduler      string  `toml:"scheduler"`
		Denoise        float64 `toml:"denoise"`
		IdentityWeight float64 `toml:"identity_weight"`
		LoRAStrength   float64 `toml:"lora_strength"`
		NegativePrompt string  `toml:"negative_prompt"`
	} `toml:"sampling"`

	Models struct {
		Checkpoint     string `toml:"checkpoint"`
		LoRA           string `toml:"lora"`
		AdapterModel   string `toml:"adapter"`
		VisionModel    string `toml:"vision"`
		FaceProvider   string `toml:"face_provider"`
		FilenamePrefix string `toml:"filename_prefix"`
	} `toml:"models"`

	Generation struct {
		RateInterval   string `toml:"rate_interval"`
		UploadCacheTTL string `toml:"upload_cache_ttl"`
		StagingDir     string `toml:"staging_dir"`
		OutputDir      string `toml:"output_dir"`
		ReferenceDir   string `toml:"reference_dir"`
	} `toml:"generation"`
}

// LoadConfig は既定値に設定ファイル（path が空でなければ）と環境変数を順に重ねた設定を返すのだ。
func LoadConfig(path string) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *config.Config, path string) error {
	fc := fromConfig(*cfg)
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("設定ファイルに未知の項目があります: %s", strings.Join(keys, ", "))
	}
	return fc.apply(cfg)
}

func fromConfig(cfg config.Config) fileConfig {
	var fc fileConfig
	fc.Engine.URL = cfg.EngineURL
	fc.Engine.PollInterval = cfg.PollInterval.String()
	fc.Engine.MaxWait = cfg.MaxWait.String()
	fc.Engine.HealthTimeout = cfg.HealthTimeout.String()
	fc.Engine.RequestTimeout = cfg.RequestTimeout.String()
	fc.Engine.DownloadRetries = cfg.DownloadRetry

	fc.Canvas.Width = cfg.Width
	fc.Canvas.Height = cfg.Height
	fc.Canvas.Feather = cfg.Feather

	fc.Sampling.Steps = cfg.Steps
	fc.Sampling.CFG = cfg.CFG
	fc.Sampling.Sampler = cfg.Sampler
	fc.Sampling.Scheduler = cfg.Scheduler
	fc.Sampling.Denoise = cfg.Denoise
	fc.Sampling.IdentityWeight = cfg.IdentityWeight
	fc.Sampling.LoRAStrength = cfg.LoRAStrength
	fc.Sampling.NegativePrompt = cfg.NegativePrompt

	fc.Models.Checkpoint = cfg.Checkpoint
	fc.Models.LoRA = cfg.LoRA
	fc.Models.AdapterModel = cfg.AdapterModel
	fc.Models.VisionModel = cfg.VisionModel
	fc.Models.FaceProvider = cfg.FaceProvider
	fc.Models.FilenamePrefix = cfg.FilenamePrefix

	fc.Generation.RateInterval = cfg.RateInterval.String()
	fc.Generation.UploadCacheTTL = cfg.UploadCacheTTL.String()
	fc.Generation.StagingDir = cfg.StagingDir
	fc.Generation.OutputDir = cfg.OutputDir
	fc.Generation.ReferenceDir = cfg.ReferenceDir
	return fc
}

func (fc fileConfig) apply(cfg *config.Config) error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"engine.poll_interval", fc.Engine.PollInterval, &cfg.PollInterval},
		{"engine.max_wait", fc.Engine.MaxWait, &cfg.MaxWait},
		{"engine.health_timeout", fc.Engine.HealthTimeout, &cfg.HealthTimeout},
		{"engine.request_timeout", fc.Engine.RequestTimeout, &cfg.RequestTimeout},
		{"generation.rate_interval", fc.Generation.RateInterval, &cfg.RateInterval},
		{"generation.upload_cache_ttl", fc.Generation.UploadCacheTTL, &cfg.UploadCacheTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s の値が不正です: %w", d.name, err)
		}
		*d.dst = v
	}

	cfg.EngineURL = fc.Engine.URL
	cfg.DownloadRetry = fc.Engine.DownloadRetries
	cfg.Width = fc.Canvas.Width
	cfg.Height = fc.Canvas.Height
	cfg.Feather = fc.Canvas.Feather
	cfg.Steps = fc.Sampling.Steps
	cfg.CFG = fc.Sampling.CFG
	cfg.Sampler = fc.Sampling.Sampler
	cfg.Scheduler = fc.Sampling.Scheduler
	cfg.Denoise = fc.Sampling.Denoise
	cfg.IdentityWeight = fc.Sampling.IdentityWeight
	cfg.LoRAStrength = fc.Sampling.LoRAStrength
	cfg.NegativePrompt = fc.Sampling.NegativePrompt
	cfg.Checkpoint = fc.Models.Checkpoint
	cfg.LoRA = fc.Models.LoRA
	cfg.AdapterModel = fc.Models.AdapterModel
	cfg.VisionModel = fc.Models.VisionModel
	cfg.FaceProvider = fc.Models.FaceProvider
	cfg.FilenamePrefix = fc.Models.FilenamePrefix
	cfg.StagingDir = fc.Generation.StagingDir
	cfg.OutputDir = fc.Generation.OutputDir
	cfg.ReferenceDir = fc.Generation.ReferenceDir
	return nil
}

// applyEnv は環境変数で設定を上書きするのだ。解析できない値は警告を出して無視する。
func applyEnv(cfg *config.Config) {
	cfg.EngineURL = envutil.GetEnv("COMFYUI_URL", cfg.EngineURL)
	cfg.StagingDir = envutil.GetEnv("SCENE_STAGING_DIR", cfg.StagingDir)
	cfg.OutputDir = envutil.GetEnv("SCENE_OUTPUT_DIR", cfg.OutputDir)
	cfg.ReferenceDir = envutil.GetEnv("SCENE_REFERENCE_DIR", cfg.ReferenceDir)
	cfg.Checkpoint = envutil.GetEnv("SCENE_CHECKPOINT", cfg.Checkpoint)
	cfg.LoRA = envutil.GetEnv("SCENE_LORA", cfg.LoRA)
	cfg.NegativePrompt = envutil.GetEnv("SCENE_NEGATIVE_PROMPT", cfg.NegativePrompt)

	cfg.MaxWait = envDuration("SCENE_MAX_WAIT", cfg.MaxWait)
	cfg.PollInterval = envDuration("SCENE_POLL_INTERVAL", cfg.PollInterval)
	cfg.RateInterval = envDuration("SCENE_RATE_INTERVAL", cfg.RateInterval)

	cfg.Width = envInt("SCENE_WIDTH", cfg.Width)
	cfg.Height = envInt("SCENE_HEIGHT", cfg.Height)
	cfg.Feather = envInt("SCENE_FEATHER", cfg.Feather)
	cfg.Steps = envInt("SCENE_STEPS", cfg.Steps)
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("環境変数の値が不正なため既定値を使います", "key", key, "value", raw, "error", err)
		return def
	}
	return v
}

func envInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("環境変数の値が不正なため既定値を使います", "key", key, "value", raw, "error", err)
		return def
	}
	return v
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	RequestFile    string   // --request: JSON の SceneRequest（'-' で標準入力）
	Prompt         string   // --prompt
	NegativePrompt string   // --negative
	Characters     []string // --char name=path[@region]
	Seed           int64    // --seed（負数は未指定）
	Steps          int      // --steps（0 は未指定）
	CFG            float64  // --cfg（0 は未指定）
	Width          int      // --width（0 は未指定）
	Height         int      // --height（0 は未指定）
	Feather        int      // --feather（負数は未指定）
	Timeout        time.Duration
	OutputDir      string // --out
	NoSave         bool   // --no-save: 閲覧URLだけを表示する
}
