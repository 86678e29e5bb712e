package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

// Adapter: источник снимков для одного сайта.
type Adapter struct {
	Tag    string
	Source Source
	Hosts  []string
	// ReportsGone: сайт умеет однозначно сообщать о снятии товара (HTTP 410).
	ReportsGone bool
}

// Registry сопоставляет хост URL с адаптером сайта. Сам реализует Source.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[string]Adapter
	byHost map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]Adapter),
		byHost: make(map[string]string),
	}
}

// Register добавляет или заменяет адаптер сайта.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byTag[a.Tag]; ok {
		for _, h := range old.Hosts {
			delete(r.byHost, strings.ToLower(h))
		}
	}
	r.byTag[a.Tag] = a
	for _, h := range a.Hosts {
		r.byHost[strings.ToLower(h)] = a.Tag
	}
}

// SiteFor возвращает тег сайта по хосту URL.
func (r *Registry) SiteFor(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSite, rawURL)
	}
	host := strings.ToLower(u.Hostname())

	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.byHost[host]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSite, host)
	}
	return tag, nil
}

// Fetch выбирает адаптер по хосту и делегирует ему запрос.
func (r *Registry) Fetch(ctx context.Context, rawURL string) (model.ProductSnapshot, error) {
	tag, err := r.SiteFor(rawURL)
	if err != nil {
		return model.ProductSnapshot{}, err
	}
	r.mu.RLock()
	a := r.byTag[tag]
	r.mu.RUnlock()
	return a.Source.Fetch(ctx, rawURL)
}

// ReportsGone сообщает, может ли адаптер сайта подтвердить удаление товара.
func (r *Registry) ReportsGone(site string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTag[site].ReportsGone
}

// GoneSites: теги сайтов, товары которых проверяет ежедневная очистка.
func (r *Registry) GoneSites() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for tag, a := range r.byTag {
		if a.ReportsGone {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// Hosts: все поддерживаемые хосты, по алфавиту.
func (r *Registry) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byHost))
	for h := range r.byHost {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
