package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/handlers"
)

type registerCmd struct{}

func (registerCmd) Name() string        { return "register" }
func (registerCmd) Description() string { return "Register a subscriber (or unblock it)" }
func (registerCmd) Usage() string       { return "register <address> [name]" }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	req := handlers.RegisterRequest{Address: args[0]}
	if len(args) == 2 {
		req.Name = args[1]
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	var s handlers.SubscriberDTO
	if err := c.DoJSON(ctx, http.MethodPost, "/api/subscribers", req, &s); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Subscriber #%d (%s)\n", s.ID, s.Address)
	return nil
}

type trackCmd struct{}

func (trackCmd) Name() string        { return "track" }
func (trackCmd) Description() string { return "Start tracking a product page" }
func (trackCmd) Usage() string       { return "track <subscriber> <url>" }

func (trackCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
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
	var it handlers.ItemDTO
	path := fmt.Sprintf("/api/subscribers/%d/items", id)
	if err := c.DoJSON(ctx, http.MethodPost, path, handlers.TrackRequest{URL: args[1]}, &it); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Tracking #%d %s: %s %s\n", it.ID, it.Name, it.CurrentPrice, it.Currency)
	return nil
}

type goodsCmd struct{}

func (goodsCmd) Name() string        { return "goods" }
func (goodsCmd) Description() string { return "List tracked products of a subscriber" }
func (goodsCmd) Usage() string       { return "goods <subscriber>" }

func (goodsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
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
	var subs []handlers.SubscriptionDTO
	if err := c.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/api/subscribers/%d/items", id), nil, &subs); err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(Out, "No tracked products")
		return nil
	}
	for _, s := range subs {
		if s.Item == nil {
			continue
		}
		it := s.Item
		fmt.Fprintf(Out, "#%d %s\n  %s %s (min %s, max %s)\n  %s\n",
			s.ID, it.Name, it.CurrentPrice, it.Currency, it.LowestPrice, it.HighestPrice, it.URL)
		if len(s.Variants) > 0 {
			fmt.Fprintf(Out, "  sizes: %s\n", strings.Join(s.Variants, ", "))
		}
	}
	return nil
}

type untrackCmd struct{}

func (untrackCmd) Name() string        { return "untrack" }
func (untrackCmd) Description() string { return "Remove one subscription" }
func (untrackCmd) Usage() string       { return "untrack <subscription>" }

func (untrackCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
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
	if err := c.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/subscriptions/%d", id), nil, nil); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Subscription removed")
	return nil
}

type untrackAllCmd struct{}

func (untrackAllCmd) Name() string        { return "untrack-all" }
func (untrackAllCmd) Description() string { return "Remove all subscriptions of a subscriber" }
func (untrackAllCmd) Usage() string       { return "untrack-all <subscriber>" }

func (untrackAllCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
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
	var res handlers.UntrackAllResponse
	if err := c.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/subscribers/%d/items", id), nil, &res); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Removed %d subscriptions\n", res.Removed)
	return nil
}

type variantCmd struct{}

func (variantCmd) Name() string        { return "variant" }
func (variantCmd) Description() string { return "Notify only about the given size of a product" }
func (variantCmd) Usage() string       { return "variant <subscription> <name>" }

func (variantCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
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
	var res handlers.VariantsResponse
	path := fmt.Sprintf("/api/subscriptions/%d/variants", id)
	if err := c.DoJSON(ctx, http.MethodPost, path, handlers.VariantRequest{Variant: args[1]}, &res); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Sizes: %s\n", strings.Join(res.Variants, ", "))
	return nil
}

func init() {
	RegisterCmd(registerCmd{})
	RegisterCmd(trackCmd{})
	RegisterCmd(goodsCmd{})
	RegisterCmd(untrackCmd{})
	RegisterCmd(untrackAllCmd{})
	RegisterCmd(variantCmd{})
}
