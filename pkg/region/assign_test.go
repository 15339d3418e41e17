package region

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAutoAssign(t *testing.T) {
	tests := []struct {
		name string
		in   []Placement
		want []string
	}{
		{"1人は中央", []Placement{{Name: "A"}}, []string{Center}},
		{"2人は左右半分", []Placement{{Name: "A"}, {Name: "B"}}, []string{LeftHalf, RightHalf}},
		{"3人は3分割", []Placement{{Name: "A"}, {Name: "B"}, {Name: "C"}}, []string{LeftThird, CenterThird, RightThird}},
		{
			"全員明示なら変更しない",
			[]Placement{{Name: "A", Region: "right"}, {Name: "B", Region: "left-seated"}},
			[]string{Right, LeftSeated},
		},
		{
			"明示指定は表記を含めて変更しない",
			[]Placement{{Name: "A", Region: "Right_Seated"}, {Name: "B", Region: " Left "}},
			[]string{"Right_Seated", " Left "},
		},
		{
			"一部明示は維持し残りは既定",
			[]Placement{{Name: "A"}, {Name: "B", Region: "center-background"}, {Name: "C"}},
			[]string{LeftThird, CenterBackground, RightThird},
		},
		{
			"画面外指定は未指定として扱う",
			[]Placement{{Name: "A", Region: "off-screen"}, {Name: "B", Region: "left"}},
			[]string{LeftHalf, Left},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AutoAssign(tt.in)
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if diff := cmp.Diff(tt.want, Regions(got)); diff != "" {
				t.Errorf("AutoAssign() の差分 (-want +got):\n%s", diff)
			}
			for i := range got {
				if got[i].Name != tt.in[i].Name {
					t.Errorf("名前の順序が変わっています: %v", got)
				}
			}
		})
	}
}

func TestAutoAssign_Deterministic(t *testing.T) {
	in := []Placement{{Name: "A"}, {Name: "B", Region: "Right_Seated"}, {Name: "C"}}
	first, err := AutoAssign(in)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, _ := AutoAssign(in)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("結果が決定的ではありません:\n%s", diff)
		}
	}
}

func TestAutoAssign_InvalidCount(t *testing.T) {
	for _, n := range []int{0, 4} {
		_, err := AutoAssign(make([]Placement, n))
		if !errors.Is(err, ErrInvalidCount) {
			t.Errorf("n=%d: ErrInvalidCount が期待されましたが %v", n, err)
		}
	}
}
