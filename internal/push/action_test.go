package push

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"tt-go/internal/model"
)

func TestNewCreate_CarriesTemporaryID(t *testing.T) {
	te := &model.TimeEntry{ID: -3, Description: "draft"}

	a := NewCreate(model.KindTimeEntry, te)

	require.Equal(t, Create, a.Type)
	require.Equal(t, model.KindTimeEntry, a.Kind)
	require.Equal(t, CreateMeta{ClientAssignedID: -3}, a.Meta)
	require.Same(t, te, a.Payload)
	require.Equal(t, int64(-3), a.EntityID())
}

func TestNewUpdateAndDelete(t *testing.T) {
	tag := &model.Tag{ID: 12, Name: "billable"}

	update := NewUpdate(model.KindTag, tag)
	require.Nil(t, update.Meta)
	require.Equal(t, int64(12), update.EntityID())
	require.Equal(t, "update tag 12", update.String())

	del := NewDelete(model.KindTag, 12)
	require.Nil(t, del.Payload)
	require.Equal(t, DeleteMeta{ID: 12}, del.Meta)
	require.Equal(t, "delete tag 12", del.String())
}

func TestBatch_GroupsByKindInInsertionOrder(t *testing.T) {
	b := NewBatch()
	b.Add(
		NewDelete(model.KindTimeEntry, 1),
		NewUpdate(model.KindProject, &model.Project{ID: 5}),
		NewCreate(model.KindTimeEntry, &model.TimeEntry{ID: -1}),
	)

	require.Equal(t, 3, b.Len())
	require.Equal(t, []model.Kind{model.KindTimeEntry, model.KindProject}, b.Kinds())
	require.Len(t, b.ByKind(model.KindTimeEntry), 2)

	ids := make([]int64, 0, 3)
	for _, a := range b.Actions() {
		ids = append(ids, a.EntityID())
	}
	require.Equal(t, []int64{1, -1, 5}, ids)
}

func TestBatch_MarshalJSON(t *testing.T) {
	b := NewBatch()
	b.Add(NewDelete(model.KindTag, 4))
	b.Add(NewCreate(model.KindClient, &model.Client{ID: -2, Name: "ACME"}))

	data, err := json.Marshal(b)
	require.NoError(t, err)

	require.JSONEq(t, `{
		"tag": [{"type": "delete", "kind": "tag", "meta": {"id": 4}}],
		"client": [{
			"type": "create",
			"kind": "client",
			"payload": {"id": -2, "at": "0001-01-01T00:00:00Z", "server_deleted_at": null, "workspace_id": 0, "name": "ACME"},
			"meta": {"client_assigned_id": -2}
		}]
	}`, string(data))
	require.Regexp(t, `^\{"tag":`, string(data))
}

func TestBatch_EmptyMarshalsToObject(t *testing.T) {
	data, err := json.Marshal(NewBatch())
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))
}
