package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCharacters_PromptFragments(t *testing.T) {
	chars := Characters{
		{Name: "Alice", Prompt: "smiling, red scarf"},
		{Name: "Bob", Prompt: "  "},
		{Name: "Carol", Prompt: "holding a book"},
	}

	got := chars.PromptFragments()
	want := []string{"Alice: smiling, red scarf", "Carol: holding a book"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PromptFragments() の差分 (-want +got):\n%s", diff)
	}
}

func TestCharacters_Slots(t *testing.T) {
	chars := Characters{
		{Name: "Alice", ReferenceImagePath: "a.png"},
		{Name: "Bob", ReferenceImagePath: "b.png"},
	}

	t.Run("領域が順番通りに適用されること", func(t *testing.T) {
		slots, err := chars.Slots([]string{"left-half", "right-half"})
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}
		want := []CharacterSlot{
			{Name: "Alice", Region: "left-half", ReferenceImagePath: "a.png"},
			{Name: "Bob", Region: "right-half", ReferenceImagePath: "b.png"},
		}
		if diff := cmp.Diff(want, slots); diff != "" {
			t.Errorf("Slots() の差分 (-want +got):\n%s", diff)
		}
	})

	t.Run("数が一致しない場合はエラーになること", func(t *testing.T) {
		if _, err := chars.Slots([]string{"center"}); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})
}

func TestCharacter_String(t *testing.T) {
	if got := (Character{Name: "Alice"}).String(); got != "Alice" {
		t.Errorf("期待値 'Alice', 実際の値 '%s'", got)
	}
	if got := (Character{Name: "Alice", Region: "left"}).String(); got != "Alice (left)" {
		t.Errorf("期待値 'Alice (left)', 実際の値 '%s'", got)
	}
}

func validRequest() SceneRequest {
	return SceneRequest{
		PositivePrompt: "two friends in a cafe",
		Characters: Characters{
			{Name: "Alice", ReferenceImagePath: "alice.png"},
			{Name: "Bob", ReferenceImagePath: "bob.png"},
		},
	}
}

func TestSceneRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *SceneRequest)
		field  string
	}{
		{"正常なリクエスト", func(r *SceneRequest) {}, ""},
		{"プロンプトが空", func(r *SceneRequest) { r.PositivePrompt = " " }, "positive_prompt"},
		{"キャラクターが0人", func(r *SceneRequest) { r.Characters = nil }, "characters"},
		{"キャラクターが4人", func(r *SceneRequest) {
			r.Characters = Characters{
				{Name: "A", ReferenceImagePath: "a"}, {Name: "B", ReferenceImagePath: "b"},
				{Name: "C", ReferenceImagePath: "c"}, {Name: "D", ReferenceImagePath: "d"},
			}
		}, "characters"},
		{"名前が空", func(r *SceneRequest) { r.Characters[1].Name = "" }, "characters[1].name"},
		{"名前の重複（大文字小文字を区別しない）", func(r *SceneRequest) { r.Characters[1].Name = "alice" }, "characters[1].name"},
		{"参照画像なし", func(r *SceneRequest) { r.Characters[0].ReferenceImagePath = "" }, "characters[0].reference_image_path"},
		{"幅が大きすぎる", func(r *SceneRequest) { r.Width = Ptr(8192) }, "width"},
		{"高さが8の倍数でない", func(r *SceneRequest) { r.Height = Ptr(770) }, "height"},
		{"負のシード", func(r *SceneRequest) { r.Seed = Ptr(int64(-1)) }, "seed"},
		{"ステップ数0", func(r *SceneRequest) { r.Steps = Ptr(0) }, "steps"},
		{"CFGが範囲外", func(r *SceneRequest) { r.CFG = Ptr(31.0) }, "cfg"},
		{"denoiseが0", func(r *SceneRequest) { r.Denoise = Ptr(0.0) }, "denoise"},
		{"負のフェザー", func(r *SceneRequest) { r.Feather = Ptr(-1) }, "feather"},
		{"負のタイムアウト", func(r *SceneRequest) { r.TimeoutSecs = Ptr(-5) }, "timeout_secs"},
		{"最大寸法は許可される", func(r *SceneRequest) { r.Width = Ptr(4096); r.Height = Ptr(64) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("予期しないエラー: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("ValidationError が返されませんでした: %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("期待フィールド %q, 実際 %q", tt.field, vErr.Field)
			}
		})
	}
}

func TestSceneRequest_Timeout(t *testing.T) {
	req := validRequest()
	if req.Timeout() != 0 {
		t.Errorf("未指定のタイムアウトは0であるべきです: %v", req.Timeout())
	}
	req.TimeoutSecs = Ptr(30)
	if req.Timeout().Seconds() != 30 {
		t.Errorf("期待値 30s, 実際の値 %v", req.Timeout())
	}
}
