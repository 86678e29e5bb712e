package handlers

import (
	"time"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/service"
)

type RegisterRequest struct {
	Address string `json:"address" validate:"required"`
	Name    string `json:"name"`
}

type TrackRequest struct {
	URL string `json:"url" validate:"required|fullUrl"`
}

type VariantRequest struct {
	Variant string `json:"variant"`
}

type MessageRequest struct {
	Message string `json:"message"`
}

type SubscriberDTO struct {
	ID        int64  `json:"id"`
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	IsBlocked bool   `json:"is_blocked"`
}

type VariantDTO struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ItemDTO: цены отдаются строками с двумя знаками после точки.
type ItemDTO struct {
	ID             int64        `json:"id"`
	URL            string       `json:"url"`
	Name           string       `json:"name"`
	Site           string       `json:"site"`
	Currency       string       `json:"currency"`
	InitialPrice   string       `json:"initial_price"`
	LowestPrice    string       `json:"lowest_price"`
	CurrentPrice   string       `json:"current_price"`
	HighestPrice   string       `json:"highest_price"`
	Availability   []VariantDTO `json:"availability"`
	FirstTrackedAt string       `json:"first_tracked_at"`
}

type SubscriptionDTO struct {
	ID       int64    `json:"id"`
	Item     *ItemDTO `json:"item,omitempty"`
	Variants []string `json:"variants"`
}

type UntrackAllResponse struct {
	Removed int64 `json:"removed"`
}

type VariantsResponse struct {
	Variants []string `json:"variants"`
}

type DispatchReportDTO struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Blocked int `json:"blocked"`
}

type SitesResponse struct {
	Hosts []string `json:"hosts"`
}

func toSubscriberDTO(s *model.Subscriber) SubscriberDTO {
	return SubscriberDTO{ID: s.ID, Address: s.Address, Name: s.Name, IsBlocked: s.IsBlocked}
}

func toItemDTO(it *model.Item) *ItemDTO {
	if it == nil {
		return nil
	}
	vars := make([]VariantDTO, 0, len(it.Availability))
	for _, v := range it.Availability {
		vars = append(vars, VariantDTO{Name: v.Name, Available: v.Available})
	}
	return &ItemDTO{
		ID:             it.ID,
		URL:            it.URL,
		Name:           it.Name,
		Site:           it.Site,
		Currency:       it.Currency,
		InitialPrice:   it.InitialPrice.StringFixed(2),
		LowestPrice:    it.LowestPrice.StringFixed(2),
		CurrentPrice:   it.CurrentPrice.StringFixed(2),
		HighestPrice:   it.HighestPrice.StringFixed(2),
		Availability:   vars,
		FirstTrackedAt: it.FirstTrackedAt.UTC().Format(time.RFC3339),
	}
}

func toSubscriptionDTO(s model.Subscription) SubscriptionDTO {
	variants := []string(s.VariantFilter)
	if variants == nil {
		variants = []string{}
	}
	return SubscriptionDTO{ID: s.ID, Item: toItemDTO(s.Item), Variants: variants}
}

func toReportDTO(r service.DispatchReport) DispatchReportDTO {
	return DispatchReportDTO{Sent: r.Sent, Skipped: r.Skipped, Failed: r.Failed, Blocked: r.Blocked}
}
