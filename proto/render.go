package proto

import (
	"fmt"
)

// Variant pairs a size breakpoint with the tree to render at that size. The
// native host picks the closest-fit breakpoint at display time; this side
// only has to preserve every supplied key exactly.
type Variant struct {
	Width  int
	Height int
	Root   *Node
}

// SizeKey returns the canonical wire key for the variant's breakpoint.
func (v Variant) SizeKey() string {
	return SizeKey(v.Width, v.Height)
}

// SizeKey encodes a breakpoint as "{width}x{height}".
func SizeKey(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// Render encodes the supplied variants into one payload envelope. All
// variants share one pool pair, so structure repeated across breakpoints is
// stored once. Two variants with the same size key are a caller error, not a
// last-write-wins overwrite.
func Render(variants ...Variant) (*Payload, error) {
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	enc := newEncoder()
	encoded := make(map[string]*EncodedNode, len(variants))
	order := make([]string, 0, len(variants))

	for _, v := range variants {
		key := v.SizeKey()
		if _, dup := encoded[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariant, key)
		}
		rec, err := enc.encode(v.Root)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", key, err)
		}
		encoded[key] = rec
		order = append(order, key)
	}

	if err := enc.dedupElements(encoded, order); err != nil {
		return nil, err
	}

	return &Payload{
		Version:        Version,
		Variants:       encoded,
		SharedStyles:   enc.styles,
		SharedElements: enc.elements,
	}, nil
}
