package navigation

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSuperseded is returned when a newer navigation or submission started
// before this one completed. Its result was discarded.
var ErrSuperseded = errors.New("navigation: superseded by a newer navigation")

// RoutingError is an HTTP-style failure rendered by the nearest error boundary.
type RoutingError struct {
	Status     int
	StatusText string
	Data       string
}

func NewRoutingError(status int, data string) *RoutingError {
	return &RoutingError{Status: status, StatusText: http.StatusText(status), Data: data}
}

func NotFound() *RoutingError { return NewRoutingError(http.StatusNotFound, "") }

func (e *RoutingError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.StatusText, e.Data)
	}
	return fmt.Sprintf("%d %s", e.Status, e.StatusText)
}

// GetStatus makes RoutingError usable wherever an HTTP status error is expected.
func (e *RoutingError) GetStatus() int { return e.Status }

// Redirect is returned by actions to navigate to Location instead of
// revalidating the submitting route.
type Redirect struct {
	Location string
}

func RedirectTo(location string) *Redirect { return &Redirect{Location: location} }
