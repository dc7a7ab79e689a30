package datastores

import (
	"context"
	"errors"
)

type (
	// ContactID is opaque; ids are generated by the store and never reused.
	ContactID string

	// Contact is a stored record. Empty optional fields are absent;
	// CreatedAt is set once at creation in Unix milliseconds.
	Contact struct {
		ID        ContactID `json:"id"                 yaml:"id,omitempty"`
		First     string    `json:"first,omitempty"    yaml:"first,omitempty"`
		Last      string    `json:"last,omitempty"     yaml:"last,omitempty"`
		Avatar    string    `json:"avatar,omitempty"   yaml:"avatar,omitempty"`
		Twitter   string    `json:"twitter,omitempty"  yaml:"twitter,omitempty"`
		Notes     string    `json:"notes,omitempty"    yaml:"notes,omitempty"`
		Favorite  bool      `json:"favorite,omitempty" yaml:"favorite,omitempty"`
		CreatedAt int64     `json:"createdAt"          yaml:"createdAt,omitempty"`
	}

	// ContactUpdate lists the fields to merge into a contact; nil fields are left untouched.
	ContactUpdate struct {
		First    *string
		Last     *string
		Avatar   *string
		Twitter  *string
		Notes    *string
		Favorite *bool
	}
)

type ContactsStore interface {
	// List returns contacts sorted by last name then creation time,
	// restricted to those matching query on first or last name when query is not empty.
	List(ctx context.Context, query string) ([]*Contact, error)
	Create(ctx context.Context) (*Contact, error)
	// Get reports found as false, without error, when id is unknown.
	Get(ctx context.Context, id ContactID) (c *Contact, found bool, err error)
	// Update returns an error wrapping [ErrObjectNotFound] when id is unknown.
	Update(ctx context.Context, id ContactID, u *ContactUpdate) (*Contact, error)
	// Delete reports whether a contact was removed.
	Delete(ctx context.Context, id ContactID) (bool, error)
}

var ErrObjectNotFound = errors.New("store: object not found")

func (u *ContactUpdate) apply(c *Contact) {
	if u == nil {
		return
	}
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{u.First, &c.First},
		{u.Last, &c.Last},
		{u.Avatar, &c.Avatar},
		{u.Twitter, &c.Twitter},
		{u.Notes, &c.Notes},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if u.Favorite != nil {
		c.Favorite = *u.Favorite
	}
}
