package domain

import (
	"fmt"
	"strings"
)

const (
	// MaxCanvasSize は生成キャンバス1辺の最大ピクセル数です。
	MaxCanvasSize = 4096
	// MinCanvasSize は生成キャンバス1辺の最小ピクセル数です。
	MinCanvasSize = 64
	// LatentAlign は潜在空間の都合でキャンバス寸法が揃っている必要がある倍数です。
	LatentAlign = 8
)

// ValidationError はネットワーク呼び出しの前に検出された入力不備です。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate はリクエストの内容を検証し、最初に見つかった不備を *ValidationError として返します。
func (r SceneRequest) Validate() error {
	if strings.TrimSpace(r.PositivePrompt) == "" {
		return invalid("positive_prompt", "empty")
	}

	n := len(r.Characters)
	if n < MinCharacters || n > MaxCharacters {
		return invalid("characters", "count must be between %d and %d, got %d", MinCharacters, MaxCharacters, n)
	}

	seen := make(map[string]struct{}, n)
	for i, c := range r.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return invalid(fmt.Sprintf("characters[%d].name", i), "missing")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return invalid(fmt.Sprintf("characters[%d].name", i), "duplicate name %q", c.Name)
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(c.ReferenceImagePath) == "" {
			return invalid(fmt.Sprintf("characters[%d].reference_image_path", i), "missing for %q", c.Name)
		}
	}

	if err := validateDimension("width", r.Width); err != nil {
		return err
	}
	if err := validateDimension("height", r.Height); err != nil {
		return err
	}
	if r.Seed != nil && *r.Seed < 0 {
		return invalid("seed", "must be non-negative, got %d", *r.Seed)
	}
	if r.Steps != nil && (*r.Steps < 1 || *r.Steps > 150) {
		return invalid("steps", "must be between 1 and 150, got %d", *r.Steps)
	}
	if r.CFG != nil && (*r.CFG <= 0 || *r.CFG > 30) {
		return invalid("cfg", "must be in (0, 30], got %g", *r.CFG)
	}
	if r.Denoise != nil && (*r.Denoise <= 0 || *r.Denoise > 1) {
		return invalid("denoise", "must be in (0, 1], got %g", *r.Denoise)
	}
	if r.IdentityWeight != nil && (*r.IdentityWeight < 0 || *r.IdentityWeight > 3) {
		return invalid("identity_weight", "must be in [0, 3], got %g", *r.IdentityWeight)
	}
	if r.Feather != nil && *r.Feather < 0 {
		return invalid("feather", "must be non-negative, got %d", *r.Feather)
	}
	if r.TimeoutSecs != nil && *r.TimeoutSecs < 0 {
		return invalid("timeout_secs", "must be non-negative, got %d", *r.TimeoutSecs)
	}
	return nil
}

func validateDimension(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < MinCanvasSize || *v > MaxCanvasSize {
		return invalid(field, "must be between %d and %d, got %d", MinCanvasSize, MaxCanvasSize, *v)
	}
	if *v%LatentAlign != 0 {
		return invalid(field, "must be a multiple of %d, got %d", LatentAlign, *v)
	}
	return nil
}
