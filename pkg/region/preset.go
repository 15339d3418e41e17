package region

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound は未知の領域IDが指定された場合に返されます。
var ErrNotFound = errors.New("region preset not found")

// ErrInvalidCount はキャラクター数が 1..3 の範囲外の場合に返されます。
var ErrInvalidCount = errors.New("character count must be between 1 and 3")

// Preset は正規化座標 [0,1] で表現した矩形の配置領域です。
type Preset struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Validate は矩形がキャンバス内に収まっていることを確認します。
func (p Preset) Validate() error {
	const eps = 1e-9
	if p.X < 0 || p.Y < 0 || p.W <= 0 || p.H <= 0 {
		return fmt.Errorf("preset %q: negative origin or empty size", p.ID)
	}
	if p.X+p.W > 1+eps || p.Y+p.H > 1+eps {
		return fmt.Errorf("preset %q: exceeds canvas (x+w=%.3f, y+h=%.3f)", p.ID, p.X+p.W, p.Y+p.H)
	}
	return nil
}

const (
	Left             = "left"
	Center           = "center"
	Right            = "right"
	LeftSeated       = "left-seated"
	CenterSeated     = "center-seated"
	RightSeated      = "right-seated"
	LeftBackground   = "left-background"
	CenterBackground = "center-background"
	RightBackground  = "right-background"
	LeftHalf         = "left-half"
	RightHalf        = "right-half"
	LeftThird        = "left-third"
	CenterThird      = "center-third"
	RightThird       = "right-third"
	Full             = "full"
)

const (
	column = 1.0 / 3.0

	seatedTop    = 0.4
	seatedHeight = 0.6

	// 背景の人物は列の内側60%、上部70%のさらに内側60%に置く
	backgroundInset  = 0.2
	backgroundTop    = 0.7 * 0.2
	backgroundHeight = 0.7 * 0.6
)

var catalog = buildCatalog()

func buildCatalog() []Preset {
	var ps []Preset
	names := []string{"left", "center", "right"}

	for i, n := range names {
		ps = append(ps, Preset{ID: n, X: float64(i) * column, Y: 0, W: column, H: 1})
	}
	for i, n := range names {
		ps = append(ps, Preset{ID: n + "-seated", X: float64(i) * column, Y: seatedTop, W: column, H: seatedHeight})
	}
	for i, n := range names {
		ps = append(ps, Preset{
			ID: n + "-background",
			X:  float64(i)*column + column*backgroundInset,
			Y:  backgroundTop,
			W:  column * (1 - 2*backgroundInset),
			H:  backgroundHeight,
		})
	}
	ps = append(ps,
		Preset{ID: LeftHalf, X: 0, Y: 0, W: 0.5, H: 1},
		Preset{ID: RightHalf, X: 0.5, Y: 0, W: 0.5, H: 1},
	)
	for i, n := range names {
		ps = append(ps, Preset{ID: n + "-third", X: float64(i) * column, Y: 0, W: column, H: 1})
	}
	ps = append(ps, Preset{ID: Full, X: 0, Y: 0, W: 1, H: 1})
	return ps
}

// Presets はカタログ全体を安定した順序で返します。
func Presets() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

// Normalize は領域IDを正規形に変換します。
// 大文字小文字を区別せず、"_" と "-" と区切りなしを同一視します（例: "Left_Seated", "leftseated" → "left-seated"）。
func Normalize(id string) string {
	s := strings.ToLower(strings.TrimSpace(id))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")
	if s == "offscreen" {
		return "off-screen"
	}
	if strings.Contains(s, "-") {
		return s
	}
	for _, suffix := range []string{"seated", "background", "half", "third"} {
		if base, ok := strings.CutSuffix(s, suffix); ok && base != "" {
			return base + "-" + suffix
		}
	}
	return s
}

// IsOffScreen は ID が画面外を表すかどうかを返します。
func IsOffScreen(id string) bool {
	return Normalize(id) == "off-screen"
}

// Resolve は ID に対応するプリセットを返します。
func Resolve(id string) (Preset, error) {
	key := Normalize(id)
	for _, p := range catalog {
		if p.ID == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// MustResolve は Resolve と同じですが、未知のIDの場合は Full を返します。
func MustResolve(id string) Preset {
	p, err := Resolve(id)
	if err != nil {
		return catalog[len(catalog)-1]
	}
	return p
}
