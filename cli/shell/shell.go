// Package shell drives a [navigation.Controller] from line commands, standing
// in for the browser: navigations and favorite toggles run in the background
// so that quickly typed searches overlap like keystrokes would.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/navigation"
	"github.com/oaiiae/huma-contacts/routes"
)

const help = `commands:
  go <location>                 navigate in the background
  search <query>                navigate to the contact list filtered by query
  submit <location> [k=v ...]   submit a form and wait for the result
  fav <id> <true|false>         toggle a favorite in the background
  wait                          wait for background commands
  state                         print the rendered state
  quit                          exit
`

// Command returns the shell subcommand. controller is called once the CLI
// options are parsed.
func Command(controller func() *navigation.Controller) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse contacts from the terminal",
		Long:  help,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), controller())
		},
	}
}

// Run executes the commands read from in until EOF or quit.
func Run(ctx context.Context, in io.Reader, out io.Writer, c *navigation.Controller) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{ctx: ctx, c: c, out: out}
	defer s.wg.Wait()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := s.exec(fields[0], fields[1:]); err != nil {
			s.printf("error: %v\n", err)
		}
	}
	return scanner.Err()
}

type session struct {
	ctx context.Context
	c   *navigation.Controller

	mu  sync.Mutex // guards out
	out io.Writer
	wg  sync.WaitGroup
}

func (s *session) exec(name string, args []string) error {
	switch name {
	case "go":
		if len(args) != 1 {
			return errors.New("usage: go <location>")
		}
		s.background(func() error { return s.c.Navigate(s.ctx, args[0]) })

	case "search":
		query := strings.Join(args, " ")
		s.background(func() error { return s.c.Navigate(s.ctx, "/?query="+url.QueryEscape(query)) })

	case "submit":
		if len(args) == 0 {
			return errors.New("usage: submit <location> [key=value ...]")
		}
		form := url.Values{}
		for _, kv := range args[1:] {
			k, v, _ := strings.Cut(kv, "=")
			form.Add(k, v)
		}
		return s.c.Submit(s.ctx, args[0], form)

	case "fav":
		if len(args) != 2 {
			return errors.New("usage: fav <id> <true|false>")
		}
		id := datastores.ContactID(args[0])
		form := url.Values{"favorite": {args[1]}}
		s.background(func() error {
			return routes.FavoriteFetcher(s.c, id).Submit(s.ctx, routes.ContactPath(id), form)
		})

	case "wait":
		s.wg.Wait()

	case "state":
		b, err := yaml.Marshal(s.dump())
		if err != nil {
			return err
		}
		s.printf("%s", b)

	case "help":
		s.printf("%s", help)

	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func (s *session) background(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil && !navigation.IsSuperseded(err) {
			s.printf("error: %v\n", err)
		}
	}()
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

type dump struct {
	Location string         `yaml:"location"`
	Phase    string         `yaml:"phase"`
	Pending  string         `yaml:"pending,omitempty"`
	Routes   []string       `yaml:"routes"`
	Data     map[string]any `yaml:"data,omitempty"`
	Error    string         `yaml:"error,omitempty"`
	// Favorite is what the star of the displayed contact shows,
	// including a toggle still in flight.
	Favorite *bool `yaml:"favorite,omitempty"`
}

func (s *session) dump() dump {
	state := s.c.State()
	d := dump{
		Location: state.Location,
		Phase:    state.Phase.String(),
		Pending:  state.Pending,
		Routes:   make([]string, 0, len(state.Matches)),
		Data:     state.LoaderData,
	}
	for _, m := range state.Matches {
		d.Routes = append(d.Routes, m.Route.ID)
	}
	if _, err := state.Error(); err != nil {
		d.Error = err.Error()
	}
	if data, ok := state.Data(routes.ContactID).(*routes.ContactData); ok {
		favorite := routes.FavoriteDisplay(routes.FavoriteFetcher(s.c, data.Contact.ID), data.Contact)
		d.Favorite = &favorite
	}
	return d
}
