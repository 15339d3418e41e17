package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-scene-kit/pkg/domain"
)

const (
	faceAnalysisModel = "buffalo_l"
	maskChannel       = "red"
)

// PromptText はシーンのプロンプトにキャラクター固有のプロンプトを連結します。
func PromptText(req domain.SceneRequest) string {
	parts := []string{strings.TrimSpace(req.PositivePrompt)}
	parts = append(parts, req.Characters.PromptFragments()...)
	return strings.Join(parts, ", ")
}

// Build はキャラクターごとの顔一貫性モジュールを共有の拡散パイプラインに連結したグラフを構築します。
//
// maskAssets と referenceAssets はアップロード済みのエンジン側ファイル名で、
// req.Characters と同じ順序・同じ数である必要があります。
// キャラクター i のコンディショニングは i-1 のモデル出力を入力とし、最後の出力がサンプラーに渡されます。
func Build(req domain.SceneRequest, maskAssets, referenceAssets []string, p Params) (*Graph, error) {
	n := len(req.Characters)
	if n < domain.MinCharacters || n > domain.MaxCharacters {
		return nil, fmt.Errorf("キャラクター数が不正です: %d (%d..%d)", n, domain.MinCharacters, domain.MaxCharacters)
	}
	if len(maskAssets) != n || len(referenceAssets) != n {
		return nil, fmt.Errorf("アセット数がキャラクター数と一致しません: characters=%d masks=%d references=%d", n, len(maskAssets), len(referenceAssets))
	}
	if p.Seed < 0 {
		return nil, errors.New("seed is not resolved")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("キャンバスサイズが不正です: %dx%d", p.Width, p.Height)
	}

	b := &builder{g: New()}

	ckpt := b.add(RoleCheckpoint, 0, "CheckpointLoaderSimple", "Load Checkpoint", map[string]any{
		"ckpt_name": p.Checkpoint,
	})
	model := ckpt.out(0)
	clip := ckpt.out(1)
	vae := ckpt.out(2)

	if p.LoRA != "" {
		lora := b.add(RoleLoRA, 0, "LoraLoaderModelOnly", "Load FaceID LoRA", map[string]any{
			"model":          model,
			"lora_name":      p.LoRA,
			"strength_model": p.LoRAStrength,
		})
		model = lora.out(0)
	}

	positive := b.add(RolePositivePrompt, 0, "CLIPTextEncode", "Positive Prompt", map[string]any{
		"text": PromptText(req),
		"clip": clip,
	})
	negative := b.add(RoleNegativePrompt, 0, "CLIPTextEncode", "Negative Prompt", map[string]any{
		"text": p.NegativePrompt,
		"clip": clip,
	})
	latent := b.add(RoleLatent, 0, "EmptyLatentImage", "Empty Latent", map[string]any{
		"width":      p.Width,
		"height":     p.Height,
		"batch_size": 1,
	})
	adapter := b.add(RoleAdapterModel, 0, "IPAdapterModelLoader", "IPAdapter Model", map[string]any{
		"ipadapter_file": p.AdapterModel,
	})
	vision := b.add(RoleVisionEncoder, 0, "CLIPVisionLoader", "CLIP Vision", map[string]any{
		"clip_name": p.VisionModel,
	})
	face := b.add(RoleFaceDetector, 0, "IPAdapterInsightFaceLoader", "InsightFace", map[string]any{
		"provider":   p.FaceProvider,
		"model_name": faceAnalysisModel,
	})

	for i, c := range req.Characters {
		ref := b.add(RoleReference, i, "LoadImage", "Reference: "+c.Name, map[string]any{
			"image": referenceAssets[i],
		})
		maskImg := b.add(RoleMask, i, "LoadImage", "Mask: "+c.Name, map[string]any{
			"image": maskAssets[i],
		})
		maskConv := b.add(RoleMaskConvert, i, "ImageToMask", "Mask Channel: "+c.Name, map[string]any{
			"image":   maskImg.out(0),
			"channel": maskChannel,
		})
		cond := b.add(RoleConditioning, i, "IPAdapterFaceID", "FaceID: "+c.Name, map[string]any{
			"model":           model,
			"ipadapter":       adapter.out(0),
			"image":           ref.out(0),
			"attn_mask":       maskConv.out(0),
			"clip_vision":     vision.out(0),
			"insightface":     face.out(0),
			"weight":          p.IdentityWeight,
			"weight_faceidv2": p.IdentityWeight,
			"weight_type":     "linear",
			"combine_embeds":  "concat",
			"start_at":        0.0,
			"end_at":          1.0,
			"embeds_scaling":  "V only",
		})
		model = cond.out(0)
	}

	sampler := b.add(RoleSampler, 0, "KSampler", "KSampler", map[string]any{
		"model":        model,
		"seed":         p.Seed,
		"steps":        p.Steps,
		"cfg":          p.CFG,
		"sampler_name": p.Sampler,
		"scheduler":    p.Scheduler,
		"denoise":      p.Denoise,
		"positive":     positive.out(0),
		"negative":     negative.out(0),
		"latent_image": latent.out(0),
	})
	decode := b.add(RoleDecode, 0, "VAEDecode", "VAE Decode", map[string]any{
		"samples": sampler.out(0),
		"vae":     vae,
	})
	b.add(RoleSave, 0, "SaveImage", "Save Image", map[string]any{
		"images":          decode.out(0),
		"filename_prefix": p.FilenamePrefix,
	})

	if b.err != nil {
		return nil, b.err
	}
	if err := b.g.Validate(); err != nil {
		return nil, fmt.Errorf("構築したグラフが不正です: %w", err)
	}
	return b.g, nil
}

// builder は最初のエラーを保持しながらノードを追加します。
type builder struct {
	g   *Graph
	err error
}

type handle string

func (h handle) out(n int) Ref { return Ref{NodeID: string(h), Output: n} }

func (b *builder) add(role Role, slot int, class, title string, inputs map[string]any) handle {
	id := role.NodeID(slot)
	if b.err != nil {
		return handle(id)
	}
	if _, err := b.g.Add(Node{ID: id, ClassType: class, Inputs: inputs, Title: title}); err != nil {
		b.err = fmt.Errorf("%s ノードの追加に失敗しました: %w", role, err)
	}
	return handle(id)
}
