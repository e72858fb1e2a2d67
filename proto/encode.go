package proto

import (
	"encoding/json"
	"fmt"
)

// encoder accumulates the shared pools for one render pass. Pool indices are
// stable within a single pass only; a new pass starts from empty pools.
type encoder struct {
	styles     []Style
	styleIdx   map[string]int
	elements   []*EncodedNode
	elementIdx map[string]int
}

func newEncoder() *encoder {
	return &encoder{
		styles:     make([]Style, 0),
		styleIdx:   make(map[string]int),
		elements:   make([]*EncodedNode, 0),
		elementIdx: make(map[string]int),
	}
}

// encode converts one node tree into its compact record, interning styles
// into the shared pool as it goes. Any invalid node fails the whole call;
// silently dropping a node would desynchronize the native renderer.
func (e *encoder) encode(n *Node) (*EncodedNode, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	rec := &EncodedNode{
		Kind:       string(n.Kind),
		ID:         n.ID,
		ActionName: n.ActionName,
		DeepLink:   n.DeepLinkURL,
	}
	if len(n.Props) > 0 {
		rec.Props = n.Props
	}
	if n.ActionType != "" && n.ActionType != ActionNone {
		rec.Action = string(n.ActionType)
	}
	if len(n.Style) > 0 {
		idx, err := e.internStyle(n.Style)
		if err != nil {
			return nil, err
		}
		rec.StyleRef = &idx
	}
	for _, child := range n.Children {
		childRec, err := e.encode(child)
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, childRec)
	}
	return rec, nil
}

// internStyle returns the pool index for a style fragment, assigning a new
// index first-seen-wins. Structural equality is decided on the canonical
// JSON form (encoding/json sorts map keys).
func (e *encoder) internStyle(s Style) (int, error) {
	key, err := fingerprint(s)
	if err != nil {
		return 0, fmt.Errorf("%w: unencodable style: %v", ErrInvalidNode, err)
	}
	if idx, ok := e.styleIdx[key]; ok {
		return idx, nil
	}
	idx := len(e.styles)
	e.styles = append(e.styles, s)
	e.styleIdx[key] = idx
	return idx, nil
}

// dedupElements replaces subtrees that occur more than once across the
// supplied roots with references into the shared element pool. Only nodes
// with children are candidates; pooling leaves would trade one record for a
// reference of the same size. Replacement does not descend into a pooled
// subtree, so a pool entry is always a complete inline tree.
func (e *encoder) dedupElements(roots map[string]*EncodedNode, order []string) error {
	counts := make(map[string]int)
	for _, key := range order {
		if err := countSubtrees(roots[key], counts); err != nil {
			return err
		}
	}
	for _, key := range order {
		folded, err := e.fold(roots[key], counts)
		if err != nil {
			return err
		}
		roots[key] = folded
	}
	return nil
}

func countSubtrees(rec *EncodedNode, counts map[string]int) error {
	if len(rec.Children) > 0 {
		key, err := fingerprint(rec)
		if err != nil {
			return err
		}
		counts[key]++
	}
	for _, child := range rec.Children {
		if err := countSubtrees(child, counts); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) fold(rec *EncodedNode, counts map[string]int) (*EncodedNode, error) {
	if len(rec.Children) > 0 {
		key, err := fingerprint(rec)
		if err != nil {
			return nil, err
		}
		if counts[key] > 1 {
			idx, seen := e.elementIdx[key]
			if !seen {
				idx = len(e.elements)
				e.elements = append(e.elements, rec)
				e.elementIdx[key] = idx
			}
			ref := idx
			return &EncodedNode{Ref: &ref}, nil
		}
	}
	for i, child := range rec.Children {
		folded, err := e.fold(child, counts)
		if err != nil {
			return nil, err
		}
		rec.Children[i] = folded
	}
	return rec, nil
}

func fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
