package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// handler is the signature of the contacts and views operations.
type handler[I, O any] = func(context.Context, *I) (*O, error)

// handlerWithErrorHandler reports the errors of handler to do, usually the
// request-scoped logger, before huma turns them into problem responses.
func handlerWithErrorHandler[I, O any](handler handler[I, O], do func(context.Context, error)) handler[I, O] {
	if do == nil {
		return handler
	}

	return func(ctx context.Context, i *I) (*O, error) {
		o, err := handler(ctx, i)
		if err != nil {
			do(ctx, err)
		}
		return o, err
	}
}

// opErrors documents the error statuses an operation answers with.
func opErrors(codes ...int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.Errors = codes }
}

// opStatus sets the success status, e.g. 201 for contact creation.
func opStatus(code int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.DefaultStatus = code }
}
