package proto

import (
	"encoding/json"
	"fmt"
)

// Decode parses a wire payload and validates it: the version must match and
// every pool index must resolve. Unrecognized JSON fields are ignored.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid payload json: %w", err)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, p.Version)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Payload) validate() error {
	for key, root := range p.Variants {
		if err := p.validateNode(root); err != nil {
			return fmt.Errorf("variant %s: %w", key, err)
		}
	}
	for i, elem := range p.SharedElements {
		// Pool entries must be complete inline trees. An entry that is
		// itself a reference could point back into the pool and send the
		// decoder into a cycle.
		if elem != nil && elem.Ref != nil {
			return fmt.Errorf("%w: sharedElements[%d] is itself a reference", ErrPoolRef, i)
		}
		if err := p.validateNode(elem); err != nil {
			return fmt.Errorf("sharedElements[%d]: %w", i, err)
		}
	}
	return nil
}

func (p *Payload) validateNode(rec *EncodedNode) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidNode)
	}
	if rec.Ref != nil {
		if *rec.Ref < 0 || *rec.Ref >= len(p.SharedElements) {
			return fmt.Errorf("%w: element %d of %d", ErrPoolRef, *rec.Ref, len(p.SharedElements))
		}
		return nil
	}
	if rec.StyleRef != nil {
		if *rec.StyleRef < 0 || *rec.StyleRef >= len(p.SharedStyles) {
			return fmt.Errorf("%w: style %d of %d", ErrPoolRef, *rec.StyleRef, len(p.SharedStyles))
		}
	}
	for _, child := range rec.Children {
		if err := p.validateNode(child); err != nil {
			return err
		}
	}
	return nil
}

// Tree reconstructs the node tree for one size key, resolving pool
// references back into inline styles and subtrees.
func (p *Payload) Tree(sizeKey string) (*Node, error) {
	rec, ok := p.Variants[sizeKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, sizeKey)
	}
	return p.decodeNode(rec)
}

func (p *Payload) decodeNode(rec *EncodedNode) (*Node, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidNode)
	}
	if rec.Ref != nil {
		if *rec.Ref < 0 || *rec.Ref >= len(p.SharedElements) {
			return nil, fmt.Errorf("%w: element %d of %d", ErrPoolRef, *rec.Ref, len(p.SharedElements))
		}
		target := p.SharedElements[*rec.Ref]
		// Guards hand-built payloads that bypassed Decode; a reference
		// chain inside the pool would never terminate.
		if target != nil && target.Ref != nil {
			return nil, fmt.Errorf("%w: sharedElements[%d] is itself a reference", ErrPoolRef, *rec.Ref)
		}
		return p.decodeNode(target)
	}

	kind := Kind(rec.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, rec.Kind)
	}

	n := &Node{
		Kind:        kind,
		ID:          rec.ID,
		Props:       rec.Props,
		ActionType:  ActionNone,
		ActionName:  rec.ActionName,
		DeepLinkURL: rec.DeepLink,
	}
	if rec.Action != "" {
		at := ActionType(rec.Action)
		if !validActionTypes[at] {
			return nil, fmt.Errorf("%w: action type %q", ErrInvalidNode, rec.Action)
		}
		n.ActionType = at
	}
	if rec.StyleRef != nil {
		if *rec.StyleRef < 0 || *rec.StyleRef >= len(p.SharedStyles) {
			return nil, fmt.Errorf("%w: style %d of %d", ErrPoolRef, *rec.StyleRef, len(p.SharedStyles))
		}
		n.Style = p.SharedStyles[*rec.StyleRef]
	}
	for _, child := range rec.Children {
		childNode, err := p.decodeNode(child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, childNode)
	}
	return n, nil
}
