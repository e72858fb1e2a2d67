package proto

import (
	"encoding/json"
	"errors"
)

// Version is the wire format tag carried by every payload. Consumers must
// reject payloads with any other value.
const Version = 1

var (
	ErrUnknownKind      = errors.New("unknown component kind")
	ErrInvalidNode      = errors.New("invalid node")
	ErrVersion          = errors.New("unsupported payload version")
	ErrNoVariants       = errors.New("no variants supplied")
	ErrDuplicateVariant = errors.New("duplicate variant size key")
	ErrUnknownVariant   = errors.New("no variant for size key")
	ErrPoolRef          = errors.New("pool reference out of range")
)

// EncodedNode is the compact positional record the native renderer consumes.
// A record with Ref set is a pure reference into the payload's sharedElements
// pool and carries no other fields.
type EncodedNode struct {
	Kind       string         `json:"t,omitempty"`
	ID         string         `json:"id,omitempty"`
	Props      Props          `json:"p,omitempty"`
	StyleRef   *int           `json:"s,omitempty"`
	Ref        *int           `json:"e,omitempty"`
	Action     string         `json:"a,omitempty"`
	ActionName string         `json:"an,omitempty"`
	DeepLink   string         `json:"dl,omitempty"`
	Children   []*EncodedNode `json:"c,omitempty"`
}

// Payload is the envelope exchanged with the native host. Field names are
// part of the compatibility surface; renaming any of them requires a Version
// bump.
type Payload struct {
	Version        int                     `json:"version"`
	Variants       map[string]*EncodedNode `json:"variants"`
	SharedStyles   []Style                 `json:"sharedStyles"`
	SharedElements []*EncodedNode          `json:"sharedElements"`
}

// Marshal returns the canonical JSON encoding of the payload.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// String returns the payload as flat JSON text, for transports that carry
// the payload as a single string value.
func (p *Payload) String() (string, error) {
	data, err := p.Marshal()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SizeKeys returns the size keys present in the payload, in no particular
// order.
func (p *Payload) SizeKeys() []string {
	keys := make([]string, 0, len(p.Variants))
	for key := range p.Variants {
		keys = append(keys, key)
	}
	return keys
}
