package graph

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/shouni/go-scene-kit/pkg/domain"
)

// ToDOT はグラフを Graphviz の DOT 形式に変換します。デバッグ用の可視化に使います。
// キャラクターごとのノードは塗りつぶしで区別します。
func ToDOT(g *Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workflow {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := n.ID + ": " + n.ClassType
		if n.Title != "" {
			label += "\n" + n.Title
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if isCharacterNode(n.ID) {
			attrs = append(attrs, "fillcolor=lightyellow")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, name := range slices.Sorted(maps.Keys(n.Inputs)) {
			r, ok := n.Inputs[name].(Ref)
			if !ok {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", r.NodeID, n.ID, name)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func isCharacterNode(id string) bool {
	for _, role := range []Role{RoleReference, RoleMask, RoleMaskConvert, RoleConditioning} {
		for slot := range domain.MaxCharacters {
			if role.NodeID(slot) == id {
				return true
			}
		}
	}
	return false
}

// RenderSVG は DOT 文字列を Graphviz で SVG に描画します。
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
