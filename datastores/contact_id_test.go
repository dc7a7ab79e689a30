package datastores

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContactID(t *testing.T) {
	a, b := newContactID(), newContactID()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 22)
	assert.Equal(t, string(a), url.PathEscape(string(a)), "ids are safe in paths")

	raw, err := base64.RawURLEncoding.DecodeString(string(a))
	require.NoError(t, err)
	id, err := uuid.FromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
