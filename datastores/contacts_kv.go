package datastores

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oaiiae/huma-contacts/fuzzy"
	"github.com/oaiiae/huma-contacts/kvstore"
)

// CollectionKey is the key the whole collection is stored under.
const CollectionKey = "contacts"

// Network delays calls the way a remote round trip would.
// See [latency.Simulator].
type Network interface {
	Wait(ctx context.Context, key string) error
}

type noNetwork struct{}

func (noNetwork) Wait(context.Context, string) error { return nil }

// ContactsKV implements [ContactsStore] on a single collection stored in a [kvstore.Store].
//
// Every call reads the collection, and mutating calls write it back whole.
// Nothing is cached and nothing is locked: overlapping mutations race and the
// last write wins.
type ContactsKV struct {
	store   kvstore.Store
	network Network

	Now   func() time.Time
	NewID func() ContactID
}

var _ ContactsStore = (*ContactsKV)(nil)

func NewContactsKV(store kvstore.Store, network Network) *ContactsKV {
	if network == nil {
		network = noNetwork{}
	}
	return &ContactsKV{
		store:   store,
		network: network,
		Now:     time.Now,
		NewID:   newContactID,
	}
}

func (s *ContactsKV) List(ctx context.Context, query string) ([]*Contact, error) {
	if err := s.network.Wait(ctx, "getContacts:"+query); err != nil {
		return nil, err
	}
	contacts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if query != "" {
		contacts = fuzzy.Filter(contacts, query,
			func(c *Contact) string { return c.First },
			func(c *Contact) string { return c.Last },
		)
	}
	sortContacts(contacts)
	return contacts, nil
}

func (s *ContactsKV) Create(ctx context.Context) (*Contact, error) {
	if err := s.network.Wait(ctx, ""); err != nil {
		return nil, err
	}
	contacts, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	c := &Contact{ID: s.uniqueID(contacts), CreatedAt: s.Now().UnixMilli()}
	contacts = slices.Insert(contacts, 0, c)
	if err := s.save(ctx, contacts); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContactsKV) Get(ctx context.Context, id ContactID) (*Contact, bool, error) {
	if err := s.network.Wait(ctx, "contact:"+string(id)); err != nil {
		return nil, false, err
	}
	contacts, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	i := index(contacts, id)
	if i < 0 {
		return nil, false, nil
	}
	return contacts[i], true, nil
}

func (s *ContactsKV) Update(ctx context.Context, id ContactID, u *ContactUpdate) (*Contact, error) {
	if err := s.network.Wait(ctx, ""); err != nil {
		return nil, err
	}
	contacts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := index(contacts, id)
	if i < 0 {
		return nil, fmt.Errorf("no contact found for id %s: %w", id, ErrObjectNotFound)
	}
	u.apply(contacts[i])
	if err := s.save(ctx, contacts); err != nil {
		return nil, err
	}
	return contacts[i], nil
}

func (s *ContactsKV) Delete(ctx context.Context, id ContactID) (bool, error) {
	if err := s.network.Wait(ctx, ""); err != nil {
		return false, err
	}
	contacts, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	i := index(contacts, id)
	if i < 0 {
		return false, nil
	}
	contacts = slices.Delete(contacts, i, i+1)
	return true, s.save(ctx, contacts)
}

// Seed stores contacts as the initial collection unless one already exists.
// Missing or duplicate ids and missing creation times are filled in.
// It reports whether the collection was written.
func (s *ContactsKV) Seed(ctx context.Context, contacts []*Contact) (bool, error) {
	_, ok, err := s.store.GetItem(ctx, CollectionKey)
	if err != nil || ok {
		return false, err
	}

	now := s.Now().UnixMilli()
	seeded := make([]*Contact, 0, len(contacts))
	for _, c := range contacts {
		c := *c
		if c.ID == "" || index(seeded, c.ID) >= 0 {
			c.ID = s.uniqueID(seeded)
		}
		if c.CreatedAt == 0 {
			c.CreatedAt = now
		}
		seeded = append(seeded, &c)
	}
	return true, s.save(ctx, seeded)
}

// Reset removes the whole collection, so that the next [ContactsKV.Seed] writes.
func (s *ContactsKV) Reset(ctx context.Context) error {
	return s.store.RemoveItem(ctx, CollectionKey)
}

// LoadSeed decodes a YAML sequence of contacts.
func LoadSeed(r io.Reader) ([]*Contact, error) {
	var contacts []*Contact
	if err := yaml.NewDecoder(r).Decode(&contacts); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return contacts, nil
}

func (s *ContactsKV) load(ctx context.Context) ([]*Contact, error) {
	contacts, _, err := kvstore.GetJSON[[]*Contact](ctx, s.store, CollectionKey)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []*Contact{}
	}
	return contacts, nil
}

func (s *ContactsKV) save(ctx context.Context, contacts []*Contact) error {
	return kvstore.SetJSON(ctx, s.store, CollectionKey, contacts)
}

func (s *ContactsKV) uniqueID(contacts []*Contact) ContactID {
retry:
	id := s.NewID()
	if index(contacts, id) >= 0 {
		goto retry
	}
	return id
}

func index(contacts []*Contact, id ContactID) int {
	return slices.IndexFunc(contacts, func(c *Contact) bool { return c.ID == id })
}

// sortContacts orders by last name then creation time. An empty last name sorts first.
func sortContacts(contacts []*Contact) {
	slices.SortStableFunc(contacts, func(a, b *Contact) int {
		return cmp.Or(
			strings.Compare(a.Last, b.Last),
			cmp.Compare(a.CreatedAt, b.CreatedAt),
		)
	})
}
