package region

import (
	"errors"
	"math"
	"testing"
)

func TestCatalog_AllPresetsInsideCanvas(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Presets() {
		if err := p.Validate(); err != nil {
			t.Errorf("不正なプリセット: %v", err)
		}
		if seen[p.ID] {
			t.Errorf("ID が重複しています: %s", p.ID)
		}
		seen[p.ID] = true
	}
	if len(seen) != 15 {
		t.Errorf("プリセット数の期待値 15, 実際の値 %d", len(seen))
	}
}

func TestResolve(t *testing.T) {
	approx := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	t.Run("表記ゆれを吸収すること", func(t *testing.T) {
		for _, id := range []string{"left-seated", "Left_Seated", "LEFTSEATED", "left seated"} {
			p, err := Resolve(id)
			if err != nil {
				t.Fatalf("%q の解決に失敗しました: %v", id, err)
			}
			if p.ID != LeftSeated {
				t.Errorf("%q: 期待値 %s, 実際の値 %s", id, LeftSeated, p.ID)
			}
		}
	})

	t.Run("着席領域は下部60パーセント", func(t *testing.T) {
		p, _ := Resolve(RightSeated)
		if !approx(p.Y, 0.4) || !approx(p.H, 0.6) || !approx(p.X, 2.0/3.0) {
			t.Errorf("想定外の矩形: %+v", p)
		}
	})

	t.Run("背景領域は列の内側", func(t *testing.T) {
		p, _ := Resolve(CenterBackground)
		col := 1.0 / 3.0
		if !approx(p.X, col+col*0.2) || !approx(p.W, col*0.6) {
			t.Errorf("想定外の横位置: %+v", p)
		}
		if !approx(p.Y, 0.14) || !approx(p.H, 0.42) {
			t.Errorf("想定外の縦位置: %+v", p)
		}
	})

	t.Run("未知のIDは ErrNotFound", func(t *testing.T) {
		_, err := Resolve("upstairs")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ErrNotFound が期待されましたが %v", err)
		}
		if MustResolve("upstairs").ID != Full {
			t.Error("MustResolve は full にフォールバックするべきです")
		}
	})
}

func TestIsOffScreen(t *testing.T) {
	for _, id := range []string{"off-screen", "Off_Screen", "offscreen"} {
		if !IsOffScreen(id) {
			t.Errorf("%q は画面外と判定されるべきです", id)
		}
	}
	if IsOffScreen("left") {
		t.Error("left は画面外ではありません")
	}
}
