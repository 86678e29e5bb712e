package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/good-news-everyone/discount-monitoring/internal/cli/api"
	"github.com/good-news-everyone/discount-monitoring/internal/cli/auth"
	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/middleware"
)

// ErrUsage is returned by a command when arguments are invalid and usage should be shown.
var ErrUsage = errors.New("usage")

// Command represents a CLI subcommand.
type Command interface {
	// Name returns the command name as typed by the user, e.g. "track".
	Name() string
	// Description is a short human-readable description shown in help.
	Description() string
	// Usage returns the exact usage string, e.g. "track <subscriber> <url>".
	Usage() string
	// Run executes the command with provided args (without the command name).
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// registry holds available commands by name.
var registry = map[string]Command{}

// Out: общий writer для вывода CLI. По умолчанию os.Stdout, но в тестах может переназначаться.
var Out io.Writer = os.Stdout

// RegisterCmd adds a command to the registry. Should be called from init() of each command.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get returns a command by name.
func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List returns all registered commands sorted by name.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage builds a help text for all commands.
func FormatGlobalUsage() string {
	lines := []string{
		"Discount monitoring CLI",
		"",
		"Usage:",
		"  dmctl [--base-url <host:port>] [--token <jwt>] <command> [args]",
		"",
		"Commands:",
	}
	for _, c := range List() {
		lines = append(lines, fmt.Sprintf("  %-28s %s", c.Usage(), c.Description()))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Tokens: хранилище сохранённого токена; в тестах подменяется.
var Tokens auth.TokenStore = auth.FileStore{}

// newClient возвращает API-клиент. Токен берётся из API_TOKEN, затем из
// сохранённого командой "token save", иначе выпускается из AUTH_SECRET.
func newClient(cfg *config.Config) (*api.Client, error) {
	token := cfg.APIToken
	if token == "" {
		if saved, err := Tokens.Load(); err == nil {
			token = saved
		}
	}
	if token == "" && cfg.AuthSecret != "" {
		var err error
		if token, err = middleware.IssueToken(cfg.AuthSecret, "dmctl", time.Hour); err != nil {
			return nil, err
		}
	}
	return api.NewClient(cfg.ServerURL, token), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUsage
	}
	return id, nil
}
