// Package push describes pending local mutations as value objects the push
// pipeline serializes and sends to the server.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tt-go/internal/model"
)

// Type is the kind of mutation an action carries.
type Type string

const (
	Create Type = "create"
	Update Type = "update"
	Delete Type = "delete"
)

// Action is one pending mutation of one entity.
type Action struct {
	Type    Type       `json:"type"`
	Kind    model.Kind `json:"kind"`
	Payload any        `json:"payload,omitempty"`
	Meta    any        `json:"meta,omitempty"`
}

// CreateMeta carries the temporary id the client assigned to a new entity, so
// the server's response can be matched back to the local record.
type CreateMeta struct {
	ClientAssignedID int64 `json:"client_assigned_id"`
}

// DeleteMeta identifies the entity to delete.
type DeleteMeta struct {
	ID int64 `json:"id"`
}

// NewCreate builds a create action. The payload's id is the temporary id.
func NewCreate(kind model.Kind, payload model.Identifiable) Action {
	return Action{
		Type:    Create,
		Kind:    kind,
		Payload: payload,
		Meta:    CreateMeta{ClientAssignedID: payload.Identifier()},
	}
}

func NewUpdate(kind model.Kind, payload model.Identifiable) Action {
	return Action{Type: Update, Kind: kind, Payload: payload}
}

func NewDelete(kind model.Kind, id int64) Action {
	return Action{Type: Delete, Kind: kind, Meta: DeleteMeta{ID: id}}
}

// EntityID returns the id of the entity the action refers to.
func (a Action) EntityID() int64 {
	switch meta := a.Meta.(type) {
	case CreateMeta:
		return meta.ClientAssignedID
	case DeleteMeta:
		return meta.ID
	}
	if p, ok := a.Payload.(model.Identifiable); ok {
		return p.Identifier()
	}
	return 0
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s %d", a.Type, a.Kind, a.EntityID())
}

// Batch groups actions by collection. Collections keep the order in which
// their first action was added and actions keep their insertion order.
type Batch struct {
	kinds   []model.Kind
	actions map[model.Kind][]Action
}

func NewBatch() *Batch {
	return &Batch{actions: make(map[model.Kind][]Action)}
}

func (b *Batch) Add(actions ...Action) {
	for _, a := range actions {
		if _, ok := b.actions[a.Kind]; !ok {
			b.kinds = append(b.kinds, a.Kind)
		}
		b.actions[a.Kind] = append(b.actions[a.Kind], a)
	}
}

// Kinds returns the collections present in the batch.
func (b *Batch) Kinds() []model.Kind {
	return append([]model.Kind(nil), b.kinds...)
}

func (b *Batch) ByKind(kind model.Kind) []Action {
	return b.actions[kind]
}

// Actions returns all actions, collection by collection.
func (b *Batch) Actions() []Action {
	var all []Action
	for _, kind := range b.kinds {
		all = append(all, b.actions[kind]...)
	}
	return all
}

func (b *Batch) Len() int {
	n := 0
	for _, actions := range b.actions {
		n += len(actions)
	}
	return n
}

// MarshalJSON encodes the batch as an object keyed by collection, in batch
// order.
func (b *Batch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kind := range b.kinds {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(kind))
		if err != nil {
			return nil, err
		}
		actions, err := json.Marshal(b.actions[kind])
		if err != nil {
			return nil, fmt.Errorf("encoding %s actions: %w", kind, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(actions)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
