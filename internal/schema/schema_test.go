package schema

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "leadconnect/pkg/domain-errors"
)

func TestDecodeGroup(t *testing.T) {
	raw := json.RawMessage(`{
		"eventData": {
			"slug": "shortcode",
			"city": "geo.city"
		},
		"profileData": {
			"email": "contact.email"
		}
	}`)

	group, err := DecodeGroup(raw)
	require.NoError(t, err)

	eventData, ok := group["eventData"].(Group)
	require.True(t, ok, "eventData should decode as a group")
	assert.Equal(t, Leaf{Path: "shortcode"}, eventData["slug"])
	assert.Equal(t, Leaf{Path: "geo.city"}, eventData["city"])

	profileData, ok := group["profileData"].(Group)
	require.True(t, ok)
	assert.Equal(t, Leaf{Path: "contact.email"}, profileData["email"])
}

func TestDecodeGroupRejectsBadNodes(t *testing.T) {
	cases := map[string]string{
		"number leaf": `{"eventData": {"x": 7}}`,
		"array node":  `{"eventData": ["a"]}`,
		"empty path":  `{"eventData": {"x": ""}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeGroup(json.RawMessage(raw))
			assert.Error(t, err)
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry([]EventSchema{
		{ID: 1, Type: "trackpage", Mapping: Group{}},
		{ID: 7, Mapping: Group{}},
	}, NewProfileSchema(map[string]FieldClass{
		"email": FieldIdentifying,
		"city":  FieldDescriptive,
	}))

	byType, err := reg.ByType("trackpage")
	require.NoError(t, err)
	assert.Equal(t, int64(1), byType.ID)

	byID, err := reg.ByID(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), byID.ID)

	_, err = reg.ByType("unknown")
	assert.True(t, derrors.HasCode(err, derrors.CodeSchemaNotFound))

	_, err = reg.ByID(99)
	assert.True(t, derrors.HasCode(err, derrors.CodeSchemaNotFound))

	assert.True(t, reg.Profile().Identifying("email"))
	assert.False(t, reg.Profile().Identifying("city"))
	assert.False(t, reg.Profile().Identifying("never-seen"))
	assert.Equal(t, map[string]bool{"email": true}, reg.Profile().IdentifyingSet())
}

type staticStore struct {
	events  []EventSchema
	profile *ProfileSchema
}

func (s staticStore) ListEventSchemas(context.Context) ([]EventSchema, error) {
	return s.events, nil
}

func (s staticStore) GetProfileSchema(context.Context) (*ProfileSchema, error) {
	return s.profile, nil
}

func TestLoad(t *testing.T) {
	reg, err := Load(context.Background(), staticStore{
		events:  []EventSchema{{ID: 3, Type: "trackpage"}},
		profile: NewProfileSchema(nil),
	})
	require.NoError(t, err)

	es, err := reg.ByType("trackpage")
	require.NoError(t, err)
	assert.Equal(t, int64(3), es.ID)
}
