package domain

import "time"

// SceneRequest は上位レイヤー（UI やオーケストレーション）から渡されるシーン生成要求です。
// ポインタ型のフィールドは省略可能で、nil の場合は設定のデフォルト値が使われます。
type SceneRequest struct {
	PositivePrompt string     `json:"positive_prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Characters     Characters `json:"characters"`

	Seed           *int64   `json:"seed,omitempty"`
	Steps          *int     `json:"steps,omitempty"`
	CFG            *float64 `json:"cfg,omitempty"`
	Width          *int     `json:"width,omitempty"`
	Height         *int     `json:"height,omitempty"`
	Sampler        *string  `json:"sampler,omitempty"`
	Scheduler      *string  `json:"scheduler,omitempty"`
	Denoise        *float64 `json:"denoise,omitempty"`
	IdentityWeight *float64 `json:"identity_weight,omitempty"`
	Feather        *int     `json:"feather,omitempty"`
	TimeoutSecs    *int     `json:"timeout_secs,omitempty"`
}

// Timeout は完了待ちのタイムアウトを返します。未指定の場合は 0 です。
func (r SceneRequest) Timeout() time.Duration {
	if r.TimeoutSecs == nil {
		return 0
	}
	return time.Duration(*r.TimeoutSecs) * time.Second
}

// OutputImage は推論エンジンが返す出力画像の記述子です。
type OutputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// SceneResult は1回の生成の結果です。出力先の長期保存は呼び出し側の責務です。
type SceneResult struct {
	JobID       string          `json:"job_id"`
	OutputPaths []string        `json:"output_paths"`
	Outputs     []OutputImage   `json:"outputs"`
	UsedSeed    int64           `json:"used_seed"`
	Assignments []CharacterSlot `json:"assignments"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// Ptr は値のポインタを返すヘルパーです。
func Ptr[T any](v T) *T { return &v }
