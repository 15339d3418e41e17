// Package graph は推論エンジンに投入するワークフローグラフ（ノードの DAG）を組み立てます。
package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Ref は別ノードの出力への参照です。エンジンAPI形式では ["<id>", n] にシリアライズされます。
type Ref struct {
	NodeID string
	Output int
}

// MarshalJSON は Ref を ["<id>", n] 形式にエンコードします。
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.NodeID, r.Output})
}

// Node はグラフ内の1つの処理ステップです。Inputs の値はリテラルか Ref です。
type Node struct {
	ID        string
	ClassType string
	Inputs    map[string]any
	Title     string
}

// Refs は入力に含まれる参照を入力名の順に返します。
func (n *Node) Refs() []Ref {
	var refs []Ref
	for _, k := range slices.Sorted(maps.Keys(n.Inputs)) {
		if r, ok := n.Inputs[k].(Ref); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// Input は名前付き入力が参照であればそれを返します。
func (n *Node) Input(name string) (Ref, bool) {
	r, ok := n.Inputs[name].(Ref)
	return r, ok
}

// Graph は挿入順を保持するノードの集合です。
type Graph struct {
	nodes []*Node
	index map[string]int
}

// New は空のグラフを生成します。
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Add はノードを末尾に追加します。ID の重複はエラーです。
func (g *Graph) Add(n Node) (Ref, error) {
	if n.ID == "" {
		return Ref{}, errors.New("node id is empty")
	}
	if _, dup := g.index[n.ID]; dup {
		return Ref{}, fmt.Errorf("duplicate node id %q", n.ID)
	}
	if n.Inputs == nil {
		n.Inputs = map[string]any{}
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, &n)
	return Ref{NodeID: n.ID}, nil
}

// Node は ID に対応するノードを返します。
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Nodes は挿入順のノード一覧を返します。
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Len はノード数を返します。
func (g *Graph) Len() int { return len(g.nodes) }

// Terminals はどのノードからも参照されていないノードの ID を挿入順に返します。
func (g *Graph) Terminals() []string {
	referenced := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		for _, r := range n.Refs() {
			referenced[r.NodeID] = true
		}
	}
	var ids []string
	for _, n := range g.nodes {
		if !referenced[n.ID] {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Validate はグラフの構造を検証します。
// 全ての参照が先に追加されたノードを指していること（したがって非巡回であること）と、
// 終端ノードがちょうど1つであることを確認します。
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return errors.New("graph is empty")
	}
	for pos, n := range g.nodes {
		for _, r := range n.Refs() {
			target, ok := g.index[r.NodeID]
			if !ok {
				return fmt.Errorf("node %q (%s) references unknown node %q", n.ID, n.ClassType, r.NodeID)
			}
			if target >= pos {
				return fmt.Errorf("node %q (%s) references node %q which is not added before it", n.ID, n.ClassType, r.NodeID)
			}
		}
	}
	if t := g.Terminals(); len(t) != 1 {
		return fmt.Errorf("graph must have exactly one terminal node, got %d %v", len(t), t)
	}
	return nil
}

type wireNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      *wireMeta      `json:"_meta,omitempty"`
}

type wireMeta struct {
	Title string `json:"title"`
}

// MarshalJSON はエンジンAPI形式 {"<id>": {"class_type": ..., "inputs": {...}}} に挿入順でエンコードします。
func (g *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range g.nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.ID)
		if err != nil {
			return nil, err
		}
		w := wireNode{ClassType: n.ClassType, Inputs: n.Inputs}
		if n.Title != "" {
			w.Meta = &wireMeta{Title: n.Title}
		}
		val, err := json.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("node %q のエンコードに失敗しました: %w", n.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
