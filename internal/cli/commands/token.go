package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/middleware"
)

type tokenCmd struct{}

func (tokenCmd) Name() string { return "token" }
func (tokenCmd) Description() string {
	return "Mint an operator token from AUTH_SECRET (save: keep it for later calls)"
}
func (tokenCmd) Usage() string { return "token [save] [ttl, e.g. 720h]" }

func (tokenCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	save := len(args) > 0 && args[0] == "save"
	if save {
		args = args[1:]
	}
	if len(args) > 1 {
		return ErrUsage
	}
	ttl := 30 * 24 * time.Hour
	if len(args) == 1 {
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			return ErrUsage
		}
		ttl = d
	}
	tok, err := middleware.IssueToken(cfg.AuthSecret, "operator", ttl)
	if err != nil {
		return err
	}
	if save {
		if err := Tokens.Save(tok); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		fmt.Fprintln(Out, "Token saved")
		return nil
	}
	fmt.Fprintln(Out, tok)
	return nil
}

func init() { RegisterCmd(tokenCmd{}) }
