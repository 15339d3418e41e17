package graph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGraph_MarshalJSON(t *testing.T) {
	g := New()
	if _, err := g.Add(Node{ID: "1", ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": "m.safetensors"}, Title: "Load"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(Node{ID: "2", ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "hi", "clip": Ref{NodeID: "1", Output: 1}}}); err != nil {
		t.Fatal(err)
	}

	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("MarshalJSON エラー: %v", err)
	}
	want := `{"1":{"class_type":"CheckpointLoaderSimple","inputs":{"ckpt_name":"m.safetensors"},"_meta":{"title":"Load"}},` +
		`"2":{"class_type":"CLIPTextEncode","inputs":{"clip":["1",1],"text":"hi"}}}`
	if string(b) != want {
		t.Errorf("エンコード結果が一致しません\n got: %s\nwant: %s", b, want)
	}
}

func TestGraph_Add_Duplicate(t *testing.T) {
	g := New()
	if _, err := g.Add(Node{ID: "1", ClassType: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(Node{ID: "1", ClassType: "B"}); err == nil {
		t.Error("重複IDでエラーが返されませんでした")
	}
}

func TestGraph_Validate(t *testing.T) {
	t.Run("未知のノードへの参照", func(t *testing.T) {
		g := New()
		g.Add(Node{ID: "1", ClassType: "A", Inputs: map[string]any{"x": Ref{NodeID: "9"}}})
		if err := g.Validate(); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("後から追加されたノードへの参照", func(t *testing.T) {
		g := New()
		g.Add(Node{ID: "1", ClassType: "A", Inputs: map[string]any{"x": Ref{NodeID: "2"}}})
		g.Add(Node{ID: "2", ClassType: "B"})
		if err := g.Validate(); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("終端ノードが複数", func(t *testing.T) {
		g := New()
		g.Add(Node{ID: "1", ClassType: "A"})
		g.Add(Node{ID: "2", ClassType: "B"})
		if err := g.Validate(); err == nil {
			t.Error("エラーが返されませんでした")
		}
	})

	t.Run("正常な連鎖", func(t *testing.T) {
		g := New()
		g.Add(Node{ID: "1", ClassType: "A"})
		g.Add(Node{ID: "2", ClassType: "B", Inputs: map[string]any{"in": Ref{NodeID: "1"}}})
		if err := g.Validate(); err != nil {
			t.Errorf("予期しないエラー: %v", err)
		}
		if diff := cmp.Diff([]string{"2"}, g.Terminals()); diff != "" {
			t.Errorf("Terminals() の差分:\n%s", diff)
		}
	})
}

func TestRole_NodeID(t *testing.T) {
	tests := []struct {
		role Role
		slot int
		want string
	}{
		{RoleCheckpoint, 0, "1"},
		{RolePositivePrompt, 2, "2"},
		{RoleLoRA, 0, "5"},
		{RoleSampler, 0, "35"},
		{RoleSave, 0, "37"},
		{RoleReference, 0, "50"},
		{RoleReference, 2, "52"},
		{RoleMask, 1, "61"},
		{RoleMaskConvert, 2, "72"},
		{RoleConditioning, 1, "81"},
	}
	for _, tt := range tests {
		if got := tt.role.NodeID(tt.slot); got != tt.want {
			t.Errorf("%s(%d): 期待値 %s, 実際の値 %s", tt.role, tt.slot, tt.want, got)
		}
	}
	if !RoleMask.PerCharacter() || RoleSampler.PerCharacter() {
		t.Error("PerCharacter() の判定が誤っています")
	}
}

func TestToDOT(t *testing.T) {
	g := New()
	g.Add(Node{ID: "1", ClassType: "A"})
	g.Add(Node{ID: "50", ClassType: "LoadImage", Inputs: map[string]any{"dep": Ref{NodeID: "1"}}})

	dot := ToDOT(g)
	for _, want := range []string{"digraph workflow", `"1" -> "50" [label="dep"]`, "fillcolor=lightyellow"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT に %q が含まれていません:\n%s", want, dot)
		}
	}
}
