package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultEngineURL      = "http://127.0.0.1:8188"
	DefaultPollInterval   = 1 * time.Second
	DefaultMaxWait        = 120 * time.Second
	DefaultHealthTimeout  = 3 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultRateInterval   = 0 // 0 は投入レート制限なし
	DefaultUploadCacheTTL = 30 * time.Minute
	DefaultOutputDir      = "output"

	DefaultWidth   = 512
	DefaultHeight  = 768
	DefaultFeather = 0

	DefaultSteps          = 20
	DefaultCFG            = 7.0
	DefaultSampler        = "euler_ancestral"
	DefaultScheduler      = "normal"
	DefaultDenoise        = 1.0
	DefaultIdentityWeight = 0.85
	DefaultLoRAStrength   = 0.6

	DefaultCheckpoint     = "juggernautXL_ragnarokBy.safetensors"
	DefaultLoRA           = "ip-adapter-faceid-plusv2_sdxl_lora.safetensors"
	DefaultAdapterModel   = "ip-adapter-faceid-plusv2_sdxl.bin"
	DefaultVisionModel    = "CLIP-ViT-H-14-laion2B-s32B-b79K.safetensors"
	DefaultFaceProvider   = "CPU"
	DefaultFilenamePrefix = "scene"
	DefaultNegativePrompt = "lowres, bad anatomy, bad hands, extra fingers, missing fingers, blurry, watermark, text, signature, deformed face, duplicate character"
)

// Config は Go Scene Kit の各 Runner を動作させるための基本設定です。
type Config struct {
	// --- Inference Engine Settings ---
	EngineURL      string
	PollInterval   time.Duration
	MaxWait        time.Duration // AwaitCompletion の上限（リクエストのタイムアウトはこれを超えられない）
	HealthTimeout  time.Duration
	RequestTimeout time.Duration // アップロード・投入など1回のHTTP呼び出しのタイムアウト
	DownloadRetry  uint64

	// --- Canvas Settings ---
	Width   int
	Height  int
	Feather int

	// --- Sampling Settings ---
	Steps          int
	CFG            float64
	Sampler        string
	Scheduler      string
	Denoise        float64
	IdentityWeight float64
	LoRAStrength   float64
	NegativePrompt string

	// --- Model Settings ---
	Checkpoint     string
	LoRA           string // 空なら LoRA ノードを挿入しない
	AdapterModel   string
	VisionModel    string
	FaceProvider   string
	FilenamePrefix string

	// --- Generation Control ---
	RateInterval   time.Duration
	UploadCacheTTL time.Duration
	StagingDir     string // 空でなければ生成したマスクをここにも保存する
	OutputDir      string // RunAndSave の既定の保存先
	ReferenceDir   string // 空でなければ参照画像のパスをこのディレクトリ配下に限定する
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		EngineURL:      DefaultEngineURL,
		PollInterval:   DefaultPollInterval,
		MaxWait:        DefaultMaxWait,
		HealthTimeout:  DefaultHealthTimeout,
		RequestTimeout: DefaultRequestTimeout,
		DownloadRetry:  3,

		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Feather: DefaultFeather,

		Steps:          DefaultSteps,
		CFG:            DefaultCFG,
		Sampler:        DefaultSampler,
		Scheduler:      DefaultScheduler,
		Denoise:        DefaultDenoise,
		IdentityWeight: DefaultIdentityWeight,
		LoRAStrength:   DefaultLoRAStrength,
		NegativePrompt: DefaultNegativePrompt,

		Checkpoint:     DefaultCheckpoint,
		LoRA:           DefaultLoRA,
		AdapterModel:   DefaultAdapterModel,
		VisionModel:    DefaultVisionModel,
		FaceProvider:   DefaultFaceProvider,
		FilenamePrefix: DefaultFilenamePrefix,

		RateInterval:   DefaultRateInterval,
		UploadCacheTTL: DefaultUploadCacheTTL,
		OutputDir:      DefaultOutputDir,
	}
}
