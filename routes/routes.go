// Package routes is the route table of the contacts application: the loaders
// and actions of every view, bound to a [datastores.ContactsStore].
package routes

import (
	"context"

	"github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/navigation"
)

const (
	RootID    = "root"
	ContactID = "contact"
	EditID    = "edit"
	DestroyID = "destroy"
)

// editableFields are the form fields the edit action applies.
var editableFields = []string{"first", "last", "avatar", "twitter", "notes"} //nolint: gochecknoglobals

type (
	RootData struct {
		Contacts []*datastores.Contact `json:"contacts" yaml:"contacts"`
		Query    string                `json:"query"    yaml:"query"`
	}

	ContactData struct {
		Contact *datastores.Contact `json:"contact" yaml:"contact"`
	}
)

type App struct {
	Contacts datastores.ContactsStore
}

func (a *App) Routes() *navigation.Route {
	return &navigation.Route{
		ID:            RootID,
		Path:          "/",
		Loader:        a.rootLoader,
		Action:        a.rootAction,
		ErrorBoundary: true,
		Children: []*navigation.Route{
			{ID: ContactID, Path: "contacts/:contactId", Loader: a.contactLoader, Action: a.favoriteAction},
			{ID: EditID, Path: "contacts/:contactId/edit", Loader: a.contactLoader, Action: a.editAction},
			{ID: DestroyID, Path: "contacts/:contactId/destroy", Action: a.destroyAction},
		},
	}
}

func (a *App) rootLoader(ctx context.Context, args navigation.LoaderArgs) (any, error) {
	query := args.URL.Query().Get("query")
	contacts, err := a.Contacts.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return &RootData{Contacts: contacts, Query: query}, nil
}

func (a *App) rootAction(ctx context.Context, _ navigation.ActionArgs) (any, error) {
	contact, err := a.Contacts.Create(ctx)
	if err != nil {
		return nil, err
	}
	return navigation.RedirectTo(EditPath(contact.ID)), nil
}

func (a *App) contactLoader(ctx context.Context, args navigation.LoaderArgs) (any, error) {
	contact, found, err := a.Contacts.Get(ctx, datastores.ContactID(args.Params["contactId"]))
	switch {
	case err != nil:
		return nil, err
	case !found:
		return nil, navigation.NotFound()
	default:
		return &ContactData{Contact: contact}, nil
	}
}

func (a *App) favoriteAction(ctx context.Context, args navigation.ActionArgs) (any, error) {
	favorite := args.Form.Get("favorite") == "true"
	return a.Contacts.Update(ctx, datastores.ContactID(args.Params["contactId"]),
		&datastores.ContactUpdate{Favorite: &favorite})
}

func (a *App) editAction(ctx context.Context, args navigation.ActionArgs) (any, error) {
	id := datastores.ContactID(args.Params["contactId"])
	update := &datastores.ContactUpdate{}
	for _, field := range editableFields {
		if !args.Form.Has(field) {
			continue
		}
		value := args.Form.Get(field)
		switch field {
		case "first":
			update.First = &value
		case "last":
			update.Last = &value
		case "avatar":
			update.Avatar = &value
		case "twitter":
			update.Twitter = &value
		case "notes":
			update.Notes = &value
		}
	}
	if _, err := a.Contacts.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return navigation.RedirectTo(ContactPath(id)), nil
}

func (a *App) destroyAction(ctx context.Context, args navigation.ActionArgs) (any, error) {
	if _, err := a.Contacts.Delete(ctx, datastores.ContactID(args.Params["contactId"])); err != nil {
		return nil, err
	}
	return navigation.RedirectTo("/"), nil
}

func ContactPath(id datastores.ContactID) string { return "/contacts/" + string(id) }
func EditPath(id datastores.ContactID) string    { return ContactPath(id) + "/edit" }
func DestroyPath(id datastores.ContactID) string { return ContactPath(id) + "/destroy" }

// FavoriteDisplay returns the favorite state to show for c: the value being
// submitted through f while a toggle is in flight, else the stored value.
func FavoriteDisplay(f *navigation.Fetcher, c *datastores.Contact) bool {
	if form, pending := f.FormData(); pending {
		return form.Get("favorite") == "true"
	}
	return c.Favorite
}

// FavoriteFetcher returns the fetcher toggling the favorite of contact id.
func FavoriteFetcher(c *navigation.Controller, id datastores.ContactID) *navigation.Fetcher {
	return c.Fetcher("favorite:" + string(id))
}
