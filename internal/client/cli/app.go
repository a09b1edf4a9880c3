// Package cli implements the elnafo-cli commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/elnafo/internal/client/client"
	"github.com/dmitrijs2005/elnafo/internal/client/config"
)

// ErrUsage reports a bad command line.
var ErrUsage = errors.New("usage")

// API is the part of the HTTP client the commands use.
type API interface {
	Register(ctx context.Context, login, email string, password []byte) (*client.User, error)
	Login(ctx context.Context, identity string, password []byte) (string, *client.User, error)
	Current(ctx context.Context, token string) (*client.User, error)
	Logout(ctx context.Context) error
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register": {"register [login] [email]", (*App).register},
	"login":    {"login [login|email]", (*App).login},
	"whoami":   {"whoami", (*App).whoami},
	"logout":   {"logout", (*App).logout},
}

type App struct {
	config *config.Config
	api    API
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    client.NewHTTPClient(c.ServerURL, c.Timeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage()
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return a.usage()
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *App) usage() error {
	usages := make([]string, 0, len(commands))
	for name := range commands {
		usages = append(usages, commands[name].usage)
	}
	sort.Strings(usages)
	return fmt.Errorf("%w: elnafo-cli [-a url] [-t token] <%s>", ErrUsage, strings.Join(usages, " | "))
}

// arg returns args[i] or prompts for it.
func (a *App) arg(args []string, i int, prompt string) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	v, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrUsage, strings.ToLower(prompt))
	}
	return v, nil
}

func (a *App) printUser(u *client.User) {
	fmt.Fprintf(a.out, "id:       %s\n", u.ID)
	fmt.Fprintf(a.out, "login:    %s\n", u.Login)
	fmt.Fprintf(a.out, "name:     %s\n", u.Name)
	if u.Email != "" {
		fmt.Fprintf(a.out, "email:    %s\n", u.Email)
	}
	fmt.Fprintf(a.out, "admin:    %t\n", u.IsAdmin)
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "avatar:   %s%s\n", a.config.ServerURL, u.Avatar)
	}
}
