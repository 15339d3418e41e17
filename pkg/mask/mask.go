// Package mask は配置領域からキャラクターごとの注意マスク画像を生成します。
package mask

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"

	"github.com/shouni/go-scene-kit/pkg/region"
)

// MaxSize はマスク1辺の最大ピクセル数です。
const MaxSize = 4096

// Mask はキャンバスと同じ寸法のグレースケールマスクです。
// 255 が対象キャラクターの領域、0 が対象外を意味します。
type Mask struct {
	OwnerName string
	Width     int
	Height    int
	Pix       []uint8 // 行優先、Width*Height 要素
}

// At は (x, y) の画素値を返します。
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Render はプリセット矩形を width×height のキャンバス上にラスタライズします。
//
// featherPx が 0 の場合は黒背景に白一色の矩形を描きます。
// 正の場合は矩形の短辺のおよそ半分を上限としてクランプし、
// 外周から内側へ 0 から 255 へ線形に立ち上がるグラデーションを付けます。
func Render(owner string, p region.Preset, width, height, featherPx int) (*Mask, error) {
	if width <= 0 || height <= 0 || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("マスクサイズが不正です: %dx%d (1..%d)", width, height, MaxSize)
	}
	if featherPx < 0 {
		return nil, fmt.Errorf("フェザー幅が負です: %d", featherPx)
	}

	m := &Mask{
		OwnerName: owner,
		Width:     width,
		Height:    height,
		Pix:       make([]uint8, width*height),
	}

	x0, y0, x1, y1 := pixelRect(p, width, height)
	if x1 <= x0 || y1 <= y0 {
		return m, nil
	}

	f := clampFeather(featherPx, x1-x0, y1-y0)
	for y := y0; y < y1; y++ {
		ry := ramp(min(y-y0, y1-1-y), f)
		row := m.Pix[y*width : (y+1)*width]
		for x := x0; x < x1; x++ {
			row[x] = min(ramp(min(x-x0, x1-1-x), f), ry)
		}
	}
	return m, nil
}

// RenderByID は領域IDからマスクを生成します。
// 未知のIDはキャンバス全体の白マスクにフォールバックし、警告メッセージを返します。
func RenderByID(owner, id string, width, height, featherPx int) (*Mask, string, error) {
	p, err := region.Resolve(id)
	if err != nil {
		warning := fmt.Sprintf("unknown region %q for %s, falling back to %s", id, owner, region.Full)
		slog.Warn("未知の領域IDのため全面マスクを使用します", "owner", owner, "region", id)
		m, rerr := Render(owner, region.MustResolve(region.Full), width, height, 0)
		return m, warning, rerr
	}
	m, err := Render(owner, p, width, height, featherPx)
	return m, "", err
}

func pixelRect(p region.Preset, width, height int) (x0, y0, x1, y1 int) {
	x0 = clamp(int(math.Round(p.X*float64(width))), 0, width)
	y0 = clamp(int(math.Round(p.Y*float64(height))), 0, height)
	x1 = clamp(x0+int(math.Round(p.W*float64(width))), 0, width)
	y1 = clamp(y0+int(math.Round(p.H*float64(height))), 0, height)
	return
}

// clampFeather は矩形の中心画素が必ず 255 になるようにフェザー幅を制限します。
func clampFeather(f, w, h int) int {
	return max(0, min(f, (min(w, h)-1)/2))
}

// ramp は外周からの距離 d に対する画素値を返します。
func ramp(d, f int) uint8 {
	if f <= 0 || d >= f {
		return 255
	}
	return uint8(255 * d / f)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Image は image.Gray として返します。Pix は共有されます。
func (m *Mask) Image() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// PNG は 8bit グレースケール PNG にエンコードします。
func (m *Mask) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.Image()); err != nil {
		return nil, fmt.Errorf("マスクのPNGエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// Base64 は PNG を標準Base64でエンコードした文字列を返します。
func (m *Mask) Base64() (string, error) {
	b, err := m.PNG()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Bounds は非ゼロ画素の外接矩形を返します。全て 0 の場合は空の矩形です。
func (m *Mask) Bounds() image.Rectangle {
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Coverage は非ゼロ画素の数を返します。
func (m *Mask) Coverage() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}
