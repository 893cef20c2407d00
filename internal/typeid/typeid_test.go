package typeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDsCarryPrefix(t *testing.T) {
	cases := []struct {
		prefix string
		gen    func() string
	}{
		{PrefixVertex, NewVertexID},
		{PrefixShape, NewShapeID},
		{PrefixLayer, NewLayerID},
		{PrefixProject, NewProjectID},
		{PrefixSnapshot, NewSnapshotID},
		{PrefixUser, NewUserID},
	}
	for _, tc := range cases {
		t.Run(tc.prefix, func(t *testing.T) {
			id := tc.gen()
			require.NoError(t, Validate(id, tc.prefix))
			assert.NotEqual(t, id, tc.gen())
		})
	}
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	id := NewVertexID()
	assert.Error(t, Validate(id, PrefixShape))
	assert.Error(t, Validate("not-an-id", PrefixVertex))
}
