package region

import (
	"fmt"
	"strings"
)

// Placement は領域割り当ての入力となるキャラクター名と明示指定の領域です。
type Placement struct {
	Name   string
	Region string // 空文字は未指定
}

// Assignment は割り当て結果です。
type Assignment struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// defaultLayouts は人数ごとの既定配置です。
var defaultLayouts = map[int][]string{
	1: {Center},
	2: {LeftHalf, RightHalf},
	3: {LeftThird, CenterThird, RightThird},
}

// AutoAssign はキャラクターに配置領域を割り当てます。
//
// 全員が画面外以外の領域を明示している場合は入力をそのまま返します。
// そうでない場合、明示指定のあるキャラクターは指定された文字列のまま維持し、
// 残りには人数ごとの既定配置から同じ位置の領域を割り当てます。
// 表記の揺れは Resolve が吸収するため、ここでは正規化しません。結果は入力のみで決まります。
func AutoAssign(ps []Placement) ([]Assignment, error) {
	n := len(ps)
	layout, ok := defaultLayouts[n]
	if !ok {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}

	out := make([]Assignment, n)
	for i, p := range ps {
		out[i] = Assignment{Name: p.Name, Region: p.Region}
		if !explicit(p.Region) {
			out[i].Region = layout[i]
		}
	}
	return out, nil
}

func explicit(id string) bool {
	return strings.TrimSpace(id) != "" && !IsOffScreen(id)
}

// Regions は割り当て結果の領域IDだけを入力順で返します。
func Regions(as []Assignment) []string {
	ids := make([]string, len(as))
	for i, a := range as {
		ids[i] = a.Region
	}
	return ids
}
