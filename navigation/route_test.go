package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func routeIDs(matches []Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Route.ID
	}
	return ids
}

func TestMatchRoutes(t *testing.T) {
	root := &Route{ID: "root", Path: "/", Children: []*Route{
		{ID: "contact", Path: "contacts/:contactId"},
		{ID: "new", Path: "contacts/new"},
		{ID: "edit", Path: "contacts/:contactId/edit"},
		{ID: "team", Path: "teams/:team", Children: []*Route{
			{ID: "member", Path: ":member"},
		}},
	}}

	tests := []struct {
		path   string
		ids    []string
		params Params
	}{
		{"/", []string{"root"}, Params{}},
		{"", []string{"root"}, Params{}},
		{"/contacts/abc", []string{"root", "contact"}, Params{"contactId": "abc"}},
		{"/contacts/abc/", []string{"root", "contact"}, Params{"contactId": "abc"}},
		{"/contacts/new", []string{"root", "new"}, Params{}},
		{"/contacts/abc/edit", []string{"root", "edit"}, Params{"contactId": "abc"}},
		{"/contacts/a%20b", []string{"root", "contact"}, Params{"contactId": "a b"}},
		{"/teams/red", []string{"root", "team"}, Params{"team": "red"}},
		{"/teams/red/ada", []string{"root", "team", "member"}, Params{"team": "red", "member": "ada"}},
		{"/nope", nil, nil},
		{"/contacts/abc/edit/more", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			matches := MatchRoutes(root, tt.path)
			if tt.ids == nil {
				assert.Nil(t, matches)
				return
			}
			assert.Equal(t, tt.ids, routeIDs(matches))
			for _, m := range matches {
				assert.Equal(t, tt.params, m.Params)
			}
		})
	}
}

func TestRoutingError(t *testing.T) {
	err := NotFound()
	assert.Equal(t, 404, err.Status)
	assert.Equal(t, "Not Found", err.StatusText)
	assert.Equal(t, "404 Not Found", err.Error())
	assert.Equal(t, 404, err.GetStatus())

	err = NewRoutingError(405, "no action")
	assert.Equal(t, "405 Method Not Allowed: no action", err.Error())
}
