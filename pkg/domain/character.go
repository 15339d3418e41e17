package domain

import (
	"fmt"
	"strings"
)

const (
	// MaxCharacters は1シーンに配置できるキャラクターの最大数です。
	MaxCharacters = 3
	// MinCharacters は1シーンに必要なキャラクターの最小数です。
	MinCharacters = 1
	// OffScreen は画面外にいるキャラクターを表す領域IDです。
	OffScreen = "off-screen"
)

// Character は生成リクエストに含まれるキャラクター1人分の入力を保持します。
type Character struct {
	Name               string `json:"name"`
	Region             string `json:"region,omitempty"`     // 明示的な配置領域（空なら自動割り当て）
	ReferenceImagePath string `json:"reference_image_path"` // 顔の一貫性保持に使う参照画像のローカルパス
	Prompt             string `json:"prompt,omitempty"`     // 表情や服装などキャラクター固有の追加プロンプト
}

// CharacterSlot は領域割り当てが確定したキャラクターです。
// 1回の生成ジョブの間だけ使われ、永続化はしません。
type CharacterSlot struct {
	Name               string `json:"name"`
	Region             string `json:"region"`
	ReferenceImagePath string `json:"reference_image_path"`
}

// String はキャラクターの情報を文字列で返します。
func (c Character) String() string {
	if c.Region == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Region)
}

// Characters はキャラクター入力のスライスです。
type Characters []Character

// Names は入力順のキャラクター名を返します。
func (cs Characters) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// PromptFragments は空でないキャラクター固有プロンプトを "名前: 内容" の形式で返します。
func (cs Characters) PromptFragments() []string {
	var fragments []string
	for _, c := range cs {
		p := strings.TrimSpace(c.Prompt)
		if p == "" {
			continue
		}
		fragments = append(fragments, fmt.Sprintf("%s: %s", c.Name, p))
	}
	return fragments
}

// Slots は割り当て済み領域を適用した CharacterSlot のスライスを生成します。
// regions の長さはキャラクター数と一致している必要があります。
func (cs Characters) Slots(regions []string) ([]CharacterSlot, error) {
	if len(regions) != len(cs) {
		return nil, fmt.Errorf("領域の数(%d)とキャラクターの数(%d)が一致しません", len(regions), len(cs))
	}
	slots := make([]CharacterSlot, len(cs))
	for i, c := range cs {
		slots[i] = CharacterSlot{
			Name:               c.Name,
			Region:             regions[i],
			ReferenceImagePath: c.ReferenceImagePath,
		}
	}
	return slots, nil
}
