package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-contacts/datastores"
)

type Contacts struct {
	Store        ds.ContactsStore
	ErrorHandler func(context.Context, error)
}

type ContactModel struct {
	ID        ds.ContactID `json:"id"                 readOnly:"true"`
	First     string       `json:"first,omitempty"    example:"Ada"`
	Last      string       `json:"last,omitempty"     example:"Lovelace"`
	Avatar    string       `json:"avatar,omitempty"   example:"https://robohash.org/ada.png?size=200x200"`
	Twitter   string       `json:"twitter,omitempty"  example:"@ada"`
	Notes     string       `json:"notes,omitempty"    example:"first programmer"`
	Favorite  bool         `json:"favorite"`
	CreatedAt int64        `json:"createdAt"          readOnly:"true" doc:"creation time in Unix milliseconds"`
}

func contactModel(c *ds.Contact) ContactModel {
	return ContactModel{
		ID:        c.ID,
		First:     c.First,
		Last:      c.Last,
		Avatar:    c.Avatar,
		Twitter:   c.Twitter,
		Notes:     c.Notes,
		Favorite:  c.Favorite,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Contacts) RegisterList(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/",
		handlerWithErrorHandler(h.list, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsListOutput struct {
	Body []ContactModel
}

func (h *Contacts) list(ctx context.Context, input *struct {
	Query string `query:"query" example:"ada" doc:"fuzzy search on first and last names"`
}) (*ContactsListOutput, error) {
	contacts, err := h.Store.List(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, contact := range contacts {
		body = append(body, contactModel(contact))
	}

	return &ContactsListOutput{Body: body}, nil
}

func (h *Contacts) RegisterCreate(api huma.API) { // called by [huma.AutoRegister]
	huma.Post(api, "/",
		handlerWithErrorHandler(h.create, h.ErrorHandler),
		opStatus(http.StatusCreated),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactOutput struct {
	Body ContactModel
}

func (h *Contacts) create(ctx context.Context, _ *struct{}) (*ContactOutput, error) {
	contact, err := h.Store.Create(ctx)
	if err != nil {
		return nil, err
	}
	return &ContactOutput{Body: contactModel(contact)}, nil
}

func (h *Contacts) RegisterGet(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/{id}",
		handlerWithErrorHandler(h.get, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) get(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" doc:"ID of the contact to get"`
}) (*ContactOutput, error) {
	contact, found, err := h.Store.Get(ctx, input.ID)
	switch {
	case err != nil:
		return nil, err
	case !found:
		return nil, huma.Error404NotFound("id not found")
	default:
		return &ContactOutput{Body: contactModel(contact)}, nil
	}
}

func (h *Contacts) RegisterPatch(api huma.API) { // called by [huma.AutoRegister]
	huma.Patch(api, "/{id}",
		handlerWithErrorHandler(h.patch, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

// ContactPatch lists the fields to change; omitted fields are kept.
type ContactPatch struct {
	First    *string `json:"first,omitempty"    example:"Ada"`
	Last     *string `json:"last,omitempty"     example:"Lovelace"`
	Avatar   *string `json:"avatar,omitempty"`
	Twitter  *string `json:"twitter,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Favorite *bool   `json:"favorite,omitempty"`
}

func (h *Contacts) patch(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" doc:"ID of the contact to update"`
	Body ContactPatch
}) (*ContactOutput, error) {
	return h.update(ctx, input.ID, &ds.ContactUpdate{
		First:    input.Body.First,
		Last:     input.Body.Last,
		Avatar:   input.Body.Avatar,
		Twitter:  input.Body.Twitter,
		Notes:    input.Body.Notes,
		Favorite: input.Body.Favorite,
	})
}

func (h *Contacts) RegisterFavorite(api huma.API) { // called by [huma.AutoRegister]
	huma.Put(api, "/{id}/favorite",
		handlerWithErrorHandler(h.favorite, h.ErrorHandler),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

func (h *Contacts) favorite(ctx context.Context, input *struct {
	ID   ds.ContactID `path:"id" doc:"ID of the contact to (un)favorite"`
	Body struct {
		Favorite bool `json:"favorite"`
	}
}) (*ContactOutput, error) {
	return h.update(ctx, input.ID, &ds.ContactUpdate{Favorite: &input.Body.Favorite})
}

func (h *Contacts) update(ctx context.Context, id ds.ContactID, u *ds.ContactUpdate) (*ContactOutput, error) {
	contact, err := h.Store.Update(ctx, id, u)
	switch {
	case err == nil:
		return &ContactOutput{Body: contactModel(contact)}, nil

	case errors.Is(err, ds.ErrObjectNotFound):
		return nil, huma.Error404NotFound("id not found", err)

	default:
		return nil, err
	}
}

func (h *Contacts) RegisterDel(api huma.API) { // called by [huma.AutoRegister]
	huma.Delete(api, "/{id}",
		handlerWithErrorHandler(h.del, h.ErrorHandler),
		opErrors(http.StatusInternalServerError),
	)
}

type ContactsDelOutput struct {
	Body struct {
		Deleted bool `json:"deleted" doc:"false when the contact did not exist"`
	}
}

func (h *Contacts) del(ctx context.Context, input *struct {
	ID ds.ContactID `path:"id" doc:"ID of the contact to delete"`
}) (*ContactsDelOutput, error) {
	deleted, err := h.Store.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	out := &ContactsDelOutput{}
	out.Body.Deleted = deleted
	return out, nil
}
