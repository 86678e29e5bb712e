package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 4 << 20
)

// JSONLDSource читает карточку товара из разметки schema.org Product
// (<script type="application/ld+json">). Подходит для большинства магазинов.
type JSONLDSource struct {
	client    *http.Client
	limiter   *Limiter
	userAgent string
}

// JSONLDOption настраивает JSONLDSource.
type JSONLDOption func(*JSONLDSource)

// WithLimiter ограничивает частоту запросов к сайту.
func WithLimiter(l *Limiter) JSONLDOption {
	return func(s *JSONLDSource) { s.limiter = l }
}

// WithUserAgent переопределяет User-Agent.
func WithUserAgent(ua string) JSONLDOption {
	return func(s *JSONLDSource) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithHTTPClient подменяет HTTP-клиент целиком (прокси тогда не применяются).
func WithHTTPClient(c *http.Client) JSONLDOption {
	return func(s *JSONLDSource) { s.client = c }
}

// NewJSONLDSource создаёт адаптер. proxies может быть nil.
func NewJSONLDSource(timeout time.Duration, proxies ProxyPicker, opts ...JSONLDOption) *JSONLDSource {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if proxies != nil {
		tr.Proxy = proxies.Pick
	}
	s := &JSONLDSource{
		client:    &http.Client{Timeout: timeout, Transport: tr},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *JSONLDSource) Fetch(ctx context.Context, url string) (model.ProductSnapshot, error) {
	if !s.limiter.Take(ctx) {
		return model.ProductSnapshot{}, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, ctx.Err())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ProductSnapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		s.limiter.Penalize(500 * time.Millisecond)
		return model.ProductSnapshot{}, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, err)
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
	case code == http.StatusNotFound:
		return model.ProductSnapshot{}, ErrNotFound
	case code == http.StatusGone:
		return model.ProductSnapshot{}, ErrGone
	case code == http.StatusTooManyRequests || code >= 500:
		s.limiter.Penalize(parseRetryAfter(resp.Header))
		return model.ProductSnapshot{}, fmt.Errorf("%w: http %d", ErrTemporarilyUnavailable, code)
	default:
		return model.ProductSnapshot{}, fmt.Errorf("%w: http %d", ErrTemporarilyUnavailable, code)
	}

	s.limiter.Succeed()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.ProductSnapshot{}, fmt.Errorf("parse html: %w", err)
	}
	return ParseProductPage(doc)
}

// ParseProductPage ищет первый schema.org Product/ProductGroup в JSON-LD документа.
func ParseProductPage(doc *goquery.Document) (model.ProductSnapshot, error) {
	var (
		snap    model.ProductSnapshot
		found   bool
		lastErr error
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		nodes, err := decodeLD([]byte(sel.Text()))
		if err != nil {
			lastErr = err
			return true
		}
		for _, n := range nodes {
			if !n.Type.Is("Product") && !n.Type.Is("ProductGroup") {
				continue
			}
			if sn, ok := n.snapshot(); ok {
				snap, found = sn, true
				return false
			}
		}
		return true
	})
	if !found {
		if lastErr != nil {
			return model.ProductSnapshot{}, fmt.Errorf("%w: %v", ErrNoProduct, lastErr)
		}
		return model.ProductSnapshot{}, ErrNoProduct
	}
	return snap, nil
}

// decodeLD разбирает объект, массив или @graph в плоский список узлов.
func decodeLD(raw []byte) ([]ldNode, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var nodes []ldNode
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &nodes); err != nil {
			return nil, err
		}
	} else {
		var n ldNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		nodes = []ldNode{n}
	}
	var flat []ldNode
	for _, n := range nodes {
		flat = append(flat, n)
		flat = append(flat, n.Graph...)
	}
	return flat, nil
}

type ldType []string

func (t *ldType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*t = ldType{one}
	return nil
}

func (t ldType) Is(name string) bool {
	for _, v := range t {
		if v == name || strings.HasSuffix(v, "/"+name) {
			return true
		}
	}
	return false
}

type ldOffer struct {
	Price         decimal.NullDecimal `json:"price"`
	LowPrice      decimal.NullDecimal `json:"lowPrice"`
	PriceCurrency string              `json:"priceCurrency"`
	Availability  string              `json:"availability"`
}

func (o ldOffer) price() (decimal.Decimal, bool) {
	if o.Price.Valid {
		return o.Price.Decimal, true
	}
	if o.LowPrice.Valid {
		return o.LowPrice.Decimal, true
	}
	return decimal.Decimal{}, false
}

func (o ldOffer) available() bool {
	a := o.Availability
	if i := strings.LastIndex(a, "/"); i >= 0 {
		a = a[i+1:]
	}
	switch a {
	case "InStock", "LimitedAvailability", "OnlineOnly", "InStoreOnly":
		return true
	}
	return false
}

// ldOffers принимает как один объект offers, так и массив.
type ldOffers []ldOffer

func (o *ldOffers) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		var list []ldOffer
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*o = list
		return nil
	}
	var one ldOffer
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = ldOffers{one}
	return nil
}

type ldNode struct {
	Type       ldType   `json:"@type"`
	Name       string   `json:"name"`
	Size       string   `json:"size"`
	Offers     ldOffers `json:"offers"`
	HasVariant []ldNode `json:"hasVariant"`
	Graph      []ldNode `json:"@graph"`
}

// snapshot собирает снимок: цена и валюта из первого предложения товара
// (или первого варианта), варианты: из hasVariant.
func (n ldNode) snapshot() (model.ProductSnapshot, bool) {
	snap := model.ProductSnapshot{Name: strings.TrimSpace(n.Name)}

	offers := n.Offers
	if len(offers) == 0 {
		for _, v := range n.HasVariant {
			if len(v.Offers) > 0 {
				offers = v.Offers
				break
			}
		}
	}
	for _, o := range offers {
		if p, ok := o.price(); ok {
			snap.Price = p
			snap.Currency = o.PriceCurrency
			break
		}
	}
	if snap.Name == "" || snap.Currency == "" {
		return model.ProductSnapshot{}, false
	}

	for _, v := range n.HasVariant {
		name := strings.TrimSpace(v.Size)
		if name == "" {
			name = strings.TrimSpace(v.Name)
		}
		if name == "" {
			continue
		}
		avail := false
		for _, o := range v.Offers {
			if o.available() {
				avail = true
				break
			}
		}
		snap.Availability = append(snap.Availability, model.VariantState{Name: name, Available: avail})
	}
	return snap, true
}
