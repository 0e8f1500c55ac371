/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package condense

import (
	"fmt"
	"strings"
)

// MarkerKind is the type of a nesting boundary.
type MarkerKind int

const (
	Open MarkerKind = iota
	Item
	Close
)

func (k MarkerKind) String() string {
	switch k {
	case Open:
		return "open"
	case Item:
		return "item"
	case Close:
		return "close"
	}
	return fmt.Sprintf("marker(%d)", int(k))
}

// Marker is one step of a nesting sequence. Index refers to the item
// position in the depth slice for Item markers and is -1 otherwise.
type Marker struct {
	Kind  MarkerKind
	Index int
}

// Boundaries turns item depths into open/item/close markers. Nesting starts
// at depth -1, so the first item at depth 0 is preceded by exactly one Open.
// Every unit increase opens one level, every unit decrease closes one, and
// remaining levels are closed at the end: the result always balances.
func Boundaries(depths []int) []Marker {
	var out []Marker
	depth := -1
	for i, d := range depths {
		if d < 0 {
			d = 0
		}
		for d > depth {
			out = append(out, Marker{Kind: Open, Index: -1})
			depth++
		}
		for d < depth {
			out = append(out, Marker{Kind: Close, Index: -1})
			depth--
		}
		out = append(out, Marker{Kind: Item, Index: i})
	}
	for depth > -1 {
		out = append(out, Marker{Kind: Close, Index: -1})
		depth--
	}
	return out
}

type nodeKind int

const (
	nodeRoot nodeKind = iota
	nodeList
	nodeItem
)

type node struct {
	kind     nodeKind
	content  string
	parent   int
	children []int
}

// tree is an arena of list and item nodes; index 0 is the root.
type tree struct {
	nodes []node
}

// buildTree applies markers to an arena. A list opened while the current
// list already has an item nests inside that item; otherwise it nests
// directly in the current list.
func buildTree(markers []Marker, contents []string) (*tree, error) {
	t := &tree{nodes: []node{{kind: nodeRoot, parent: -1}}}
	cur := 0
	for _, m := range markers {
		switch m.Kind {
		case Open:
			attach := cur
			if ch := t.nodes[cur].children; t.nodes[cur].kind == nodeList && len(ch) > 0 {
				attach = ch[len(ch)-1]
			}
			cur = t.add(attach, node{kind: nodeList})
		case Item:
			if t.nodes[cur].kind != nodeList {
				return nil, fmt.Errorf("item %d outside of a list", m.Index)
			}
			if m.Index < 0 || m.Index >= len(contents) {
				return nil, fmt.Errorf("item index %d out of range", m.Index)
			}
			t.add(cur, node{kind: nodeItem, content: contents[m.Index]})
		case Close:
			if t.nodes[cur].kind != nodeList {
				return nil, fmt.Errorf("unbalanced close")
			}
			p := t.nodes[cur].parent
			if t.nodes[p].kind == nodeItem {
				p = t.nodes[p].parent
			}
			cur = p
		}
	}
	if cur != 0 {
		return nil, fmt.Errorf("unbalanced open")
	}
	return t, nil
}

func (t *tree) add(parent int, n node) int {
	n.parent = parent
	t.nodes = append(t.nodes, n)
	idx := len(t.nodes) - 1
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// render flattens the subtree at idx.
func (t *tree) render(b *strings.Builder, idx int) {
	n := t.nodes[idx]
	switch n.kind {
	case nodeList:
		b.WriteString("<list>")
	case nodeItem:
		b.WriteString("<li>")
		b.WriteString(n.content)
	}
	for _, c := range n.children {
		t.render(b, c)
	}
	switch n.kind {
	case nodeList:
		b.WriteString("</list>")
	case nodeItem:
		b.WriteString("</li>")
	}
}

// Nest renders item contents at the given depths as nested list markup.
func Nest(depths []int, contents []string) (string, error) {
	if len(depths) != len(contents) {
		return "", fmt.Errorf("condense: %d depths for %d items", len(depths), len(contents))
	}
	t, err := buildTree(Boundaries(depths), contents)
	if err != nil {
		return "", fmt.Errorf("condense: %w", err)
	}
	var b strings.Builder
	t.render(&b, 0)
	return b.String(), nil
}
