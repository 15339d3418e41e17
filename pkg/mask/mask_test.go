package mask

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/shouni/go-scene-kit/pkg/region"
)

func TestRender_Solid(t *testing.T) {
	const w, h = 1024, 576
	for _, p := range region.Presets() {
		t.Run(p.ID, func(t *testing.T) {
			m, err := Render("Alice", p, w, h, 0)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			want := int(math.Round(p.W*w)) * int(math.Round(p.H*h))
			if got := m.Coverage(); got != want {
				t.Errorf("白画素数の期待値 %d, 実際の値 %d", want, got)
			}
			for _, v := range m.Pix {
				if v != 0 && v != 255 {
					t.Fatalf("フェザーなしで中間値 %d が含まれています", v)
				}
			}
		})
	}
}

func TestRender_Feather(t *testing.T) {
	const w, h, f = 1024, 576, 20
	p := region.MustResolve(region.LeftHalf)
	m, err := Render("Alice", p, w, h, f)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	t.Run("外周は0", func(t *testing.T) {
		if v := m.At(0, h/2); v != 0 {
			t.Errorf("左端の期待値 0, 実際の値 %d", v)
		}
		if v := m.At(511, h/2); v != 0 {
			t.Errorf("右端の期待値 0, 実際の値 %d", v)
		}
		if v := m.At(256, 0); v != 0 {
			t.Errorf("上端の期待値 0, 実際の値 %d", v)
		}
	})

	t.Run("フェザー幅より内側は255", func(t *testing.T) {
		for _, pt := range []image.Point{{f, f}, {256, 288}, {511 - f, h - 1 - f}} {
			if v := m.At(pt.X, pt.Y); v != 255 {
				t.Errorf("%v の期待値 255, 実際の値 %d", pt, v)
			}
		}
	})

	t.Run("内側に向かって単調非減少", func(t *testing.T) {
		y := h / 2
		for x := 1; x <= 256; x++ {
			if m.At(x, y) < m.At(x-1, y) {
				t.Fatalf("x=%d で値が減少しています: %d < %d", x, m.At(x, y), m.At(x-1, y))
			}
		}
	})

	t.Run("領域外は0", func(t *testing.T) {
		if v := m.At(512, h/2); v != 0 {
			t.Errorf("右半分は0であるべきですが %d", v)
		}
	})
}

func TestRender_FeatherClamped(t *testing.T) {
	p := region.Preset{ID: "tiny", X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	m, err := Render("Bob", p, 40, 40, 100)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	// 20x20 の矩形に対しフェザーは 9 に丸められる
	if v := m.At(10+10, 10+10); v != 255 {
		t.Errorf("中心は255であるべきですが %d", v)
	}
	if v := m.At(10, 20); v != 0 {
		t.Errorf("外周は0であるべきですが %d", v)
	}
}

func TestRender_HalvesSeam(t *testing.T) {
	const w, h = 1024, 576
	left, _ := Render("A", region.MustResolve(region.LeftHalf), w, h, 0)
	right, _ := Render("B", region.MustResolve(region.RightHalf), w, h, 0)

	if left.At(511, 0) != 255 || left.At(512, 0) != 0 {
		t.Error("左半分の境界が x=511/512 にありません")
	}
	if right.At(511, 0) != 0 || right.At(512, 0) != 255 {
		t.Error("右半分の境界が x=511/512 にありません")
	}
	if left.Coverage()+right.Coverage() != w*h {
		t.Error("左右のマスクがキャンバス全体を覆っていません")
	}
}

func TestRender_RoundTrip(t *testing.T) {
	const w, h = 900, 600
	p := region.MustResolve(region.CenterBackground)
	m, err := Render("Carol", p, w, h, 0)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	b := m.Bounds()
	const tol = 1.0 / 100
	check := func(name string, got, want float64) {
		if math.Abs(got-want) > tol {
			t.Errorf("%s: 期待値 %.4f, 実際の値 %.4f", name, want, got)
		}
	}
	check("x", float64(b.Min.X)/w, p.X)
	check("y", float64(b.Min.Y)/h, p.Y)
	check("w", float64(b.Dx())/w, p.W)
	check("h", float64(b.Dy())/h, p.H)
}

func TestRenderByID(t *testing.T) {
	t.Run("未知のIDは全面マスクと警告", func(t *testing.T) {
		m, warning, err := RenderByID("Dan", "balcony", 64, 32, 5)
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		if warning == "" {
			t.Error("警告が返されませんでした")
		}
		if m.Coverage() != 64*32 {
			t.Errorf("全面が白であるべきですが %d 画素", m.Coverage())
		}
	})

	t.Run("既知のIDは警告なし", func(t *testing.T) {
		_, warning, err := RenderByID("Dan", "Right_Half", 64, 32, 0)
		if err != nil || warning != "" {
			t.Errorf("err=%v warning=%q", err, warning)
		}
	})
}

func TestRender_InvalidCanvas(t *testing.T) {
	p := region.MustResolve(region.Full)
	for _, sz := range [][2]int{{0, 10}, {10, -1}, {4097, 10}} {
		if _, err := Render("E", p, sz[0], sz[1], 0); err == nil {
			t.Errorf("%v でエラーが返されませんでした", sz)
		}
	}
}

func TestMask_PNGAndBase64(t *testing.T) {
	m, _ := Render("F", region.MustResolve(region.Right), 30, 20, 0)
	b, err := m.PNG()
	if err != nil {
		t.Fatalf("PNG() エラー: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("PNGのデコードに失敗しました: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("グレースケールではありません: %T", img)
	}
	if !bytes.Equal(gray.Pix, m.Pix) {
		t.Error("デコード結果の画素が一致しません")
	}

	s, err := m.Base64()
	if err != nil {
		t.Fatalf("Base64() エラー: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || !bytes.Equal(raw, b) {
		t.Error("Base64 が PNG バイト列と一致しません")
	}
}
