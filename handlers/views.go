package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	ds "github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/navigation"
)

// Views serves the loaders and actions of a route table, so a view layer
// can render a location or submit a form to it over HTTP.
type Views struct {
	Root         *navigation.Route
	ErrorHandler func(context.Context, error)
}

func (h *Views) RegisterLoad(api huma.API) { // called by [huma.AutoRegister]
	huma.Get(api, "/",
		handlerWithErrorHandler(h.load, h.ErrorHandler),
		opErrors(http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError),
	)
}

type ViewModel struct {
	Location string         `json:"location"`
	Routes   []string       `json:"routes"   doc:"ids of the rendered routes, root first"`
	Data     map[string]any `json:"data"     doc:"loader data by route id"`
}

type ViewsLoadOutput struct {
	Body ViewModel
}

func (h *Views) load(ctx context.Context, input *struct {
	Location string `query:"location" required:"true" example:"/contacts/abc" doc:"location to render"`
}) (*ViewsLoadOutput, error) {
	state, err := navigation.Load(ctx, h.Root, input.Location)
	if err != nil {
		return nil, statusError(err)
	}
	if _, err := state.Error(); err != nil {
		return nil, statusError(err)
	}

	out := &ViewsLoadOutput{Body: ViewModel{
		Location: state.Location,
		Routes:   make([]string, 0, len(state.Matches)),
		Data:     state.LoaderData,
	}}
	for _, m := range state.Matches {
		out.Body.Routes = append(out.Body.Routes, m.Route.ID)
	}
	return out, nil
}

func (h *Views) RegisterSubmit(api huma.API) { // called by [huma.AutoRegister]
	huma.Post(api, "/",
		handlerWithErrorHandler(h.submit, h.ErrorHandler),
		opErrors(http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusInternalServerError),
	)
}

type ViewsSubmitOutput struct {
	Body struct {
		Redirect string `json:"redirect,omitempty" doc:"location to navigate to"`
		Result   any    `json:"result,omitempty"   doc:"mutation result when not redirecting"`
	}
}

func (h *Views) submit(ctx context.Context, input *struct {
	Location string `query:"location" required:"true" example:"/contacts/abc/edit" doc:"location submitted to"`
	Body     map[string][]string `required:"false" doc:"submitted form fields"`
}) (*ViewsSubmitOutput, error) {
	result, err := navigation.Act(ctx, h.Root, input.Location, url.Values(input.Body))
	if err != nil {
		return nil, statusError(err)
	}

	out := &ViewsSubmitOutput{}
	if r, ok := result.(*navigation.Redirect); ok {
		out.Body.Redirect = r.Location
	} else {
		out.Body.Result = result
	}
	return out, nil
}

// statusError converts routing errors and known store errors to HTTP errors.
func statusError(err error) error {
	var rerr *navigation.RoutingError
	if errors.As(err, &rerr) {
		return huma.NewError(rerr.Status, rerr.StatusText, err)
	}
	if errors.Is(err, ds.ErrObjectNotFound) {
		return huma.Error404NotFound("id not found", err)
	}
	return err
}
