package proto

import (
	"fmt"
)

// Kind identifies the renderable element type of a node. The set is closed:
// the native renderer only knows how to lay out these kinds, so an unknown
// kind is an encode error rather than something to silently drop.
type Kind string

const (
	KindContainer Kind = "container"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindButton    Kind = "button"
	KindSpacer    Kind = "spacer"
	KindList      Kind = "list"
	KindListItem  Kind = "listItem"
	KindProgress  Kind = "progress"
)

var validKinds = map[Kind]bool{
	KindContainer: true,
	KindText:      true,
	KindImage:     true,
	KindButton:    true,
	KindSpacer:    true,
	KindList:      true,
	KindListItem:  true,
	KindProgress:  true,
}

func (k Kind) Valid() bool {
	return validKinds[k]
}

// ActionType describes what happens when the user triggers a node on the
// native host.
type ActionType string

const (
	// ActionNone marks a non-interactive node.
	ActionNone ActionType = "none"
	// ActionRefresh notifies application code and awaits a new payload.
	ActionRefresh ActionType = "refresh"
	// ActionDeepLink navigates the host application to DeepLinkURL without
	// involving any application callback.
	ActionDeepLink ActionType = "deepLink"
)

var validActionTypes = map[ActionType]bool{
	ActionNone:     true,
	ActionRefresh:  true,
	ActionDeepLink: true,
}

// Props is an open attribute bag for a node (strings, numbers, bools,
// nested values). Unrecognized keys survive encode/decode untouched and are
// ignored by consumers that do not know them.
type Props map[string]any

// Style is a normalized bag of visual properties (colors, spacing,
// typography, alignment). Byte-identical styles are deduplicated into the
// payload's shared style pool.
type Style map[string]any

// Node is one renderable element of a UI tree.
type Node struct {
	Kind        Kind
	ID          string
	Props       Props
	Style       Style
	Children    []*Node
	ActionType  ActionType
	ActionName  string
	DeepLinkURL string
}

// Validate checks the node itself, not its subtree.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
	if n.ActionType != "" && !validActionTypes[n.ActionType] {
		return fmt.Errorf("%w: action type %q on node %q", ErrInvalidNode, n.ActionType, n.ID)
	}
	if n.ActionType == ActionDeepLink && n.DeepLinkURL == "" {
		return fmt.Errorf("%w: deepLink node %q has no url", ErrInvalidNode, n.ID)
	}
	return nil
}
