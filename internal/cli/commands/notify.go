package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/handlers"
)

type notifyCmd struct{}

func (notifyCmd) Name() string        { return "notify" }
func (notifyCmd) Description() string { return "Send a message to one subscriber" }
func (notifyCmd) Usage() string       { return "notify <subscriber> <text>" }

func (notifyCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	req := handlers.MessageRequest{Message: strings.Join(args[1:], " ")}
	if err := c.DoJSON(ctx, http.MethodPost, fmt.Sprintf("/api/notify/%d", id), req, nil); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Message sent")
	return nil
}

type broadcastCmd struct{}

func (broadcastCmd) Name() string        { return "broadcast" }
func (broadcastCmd) Description() string { return "Send a message to every active subscriber" }
func (broadcastCmd) Usage() string       { return "broadcast <text>" }

func (broadcastCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return ErrUsage
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	var rep handlers.DispatchReportDTO
	req := handlers.MessageRequest{Message: strings.Join(args, " ")}
	if err := c.DoJSON(ctx, http.MethodPost, "/api/notify", req, &rep); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Sent: %d, failed: %d, blocked: %d\n", rep.Sent, rep.Failed, rep.Blocked)
	return nil
}

type sitesCmd struct{}

func (sitesCmd) Name() string        { return "sites" }
func (sitesCmd) Description() string { return "List supported shop hosts" }
func (sitesCmd) Usage() string       { return "sites" }

func (sitesCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	var res handlers.SitesResponse
	if err := c.DoJSON(ctx, http.MethodGet, "/api/sites", nil, &res); err != nil {
		return err
	}
	for _, h := range res.Hosts {
		fmt.Fprintln(Out, h)
	}
	return nil
}

func init() {
	RegisterCmd(notifyCmd{})
	RegisterCmd(broadcastCmd{})
	RegisterCmd(sitesCmd{})
}
