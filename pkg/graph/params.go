package graph

import (
	"math/rand/v2"

	"github.com/shouni/go-scene-kit/pkg/config"
	"github.com/shouni/go-scene-kit/pkg/domain"
)

// RandomSeed はシードが未確定であることを表します。
const RandomSeed int64 = -1

// maxSeed は JSON の数値として精度を失わない上限です。
const maxSeed = 1 << 53

// Params はグラフ構築時のサンプリング・モデル設定です。
type Params struct {
	Width  int
	Height int

	Steps          int
	CFG            float64
	Sampler        string
	Scheduler      string
	Denoise        float64
	IdentityWeight float64
	NegativePrompt string
	Seed           int64

	Checkpoint     string
	LoRA           string
	LoRAStrength   float64
	AdapterModel   string
	VisionModel    string
	FaceProvider   string
	FilenamePrefix string
}

// NewParams は設定の既定値から Params を生成します。シードは未確定です。
func NewParams(cfg config.Config) Params {
	return Params{
		Width:          cfg.Width,
		Height:         cfg.Height,
		Steps:          cfg.Steps,
		CFG:            cfg.CFG,
		Sampler:        cfg.Sampler,
		Scheduler:      cfg.Scheduler,
		Denoise:        cfg.Denoise,
		IdentityWeight: cfg.IdentityWeight,
		NegativePrompt: cfg.NegativePrompt,
		Seed:           RandomSeed,
		Checkpoint:     cfg.Checkpoint,
		LoRA:           cfg.LoRA,
		LoRAStrength:   cfg.LoRAStrength,
		AdapterModel:   cfg.AdapterModel,
		VisionModel:    cfg.VisionModel,
		FaceProvider:   cfg.FaceProvider,
		FilenamePrefix: cfg.FilenamePrefix,
	}
}

// Apply はリクエストで指定された値で上書きし、シードを確定させた Params を返します。
func (p Params) Apply(req domain.SceneRequest) Params {
	if req.Width != nil {
		p.Width = *req.Width
	}
	if req.Height != nil {
		p.Height = *req.Height
	}
	if req.Steps != nil {
		p.Steps = *req.Steps
	}
	if req.CFG != nil {
		p.CFG = *req.CFG
	}
	if req.Sampler != nil && *req.Sampler != "" {
		p.Sampler = *req.Sampler
	}
	if req.Scheduler != nil && *req.Scheduler != "" {
		p.Scheduler = *req.Scheduler
	}
	if req.Denoise != nil {
		p.Denoise = *req.Denoise
	}
	if req.IdentityWeight != nil {
		p.IdentityWeight = *req.IdentityWeight
	}
	if req.NegativePrompt != "" {
		p.NegativePrompt = req.NegativePrompt
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if p.Seed < 0 {
		p.Seed = NewSeed()
	}
	return p
}

// NewSeed は [0, 2^53) の乱数シードを返します。
func NewSeed() int64 {
	return rand.Int64N(maxSeed)
}
