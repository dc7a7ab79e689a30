package datastores

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// newContactID returns a UUIDv7 in unpadded base64url: 22 URL-safe characters,
// unique and ordered by generation time.
func newContactID() ContactID {
	id := uuid.Must(uuid.NewV7())
	return ContactID(base64.RawURLEncoding.EncodeToString(id[:]))
}
