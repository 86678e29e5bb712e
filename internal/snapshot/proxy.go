package snapshot

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// ProxyPicker выбирает прокси для исходящего запроса. Сигнатура совпадает
// с http.Transport.Proxy; nil URL означает прямое соединение.
type ProxyPicker interface {
	Pick(req *http.Request) (*url.URL, error)
}

// DirectProxy: без прокси.
type DirectProxy struct{}

func (DirectProxy) Pick(*http.Request) (*url.URL, error) { return nil, nil }

// RoundRobinProxy перебирает список прокси по кругу.
type RoundRobinProxy struct {
	list []*url.URL
	next atomic.Uint64
}

// NewRoundRobinProxy разбирает адреса вида host:port или http://host:port.
// Пустой список даёт прямое соединение.
func NewRoundRobinProxy(addrs []string) (*RoundRobinProxy, error) {
	p := &RoundRobinProxy{}
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !strings.Contains(a, "://") {
			a = "http://" + a
		}
		u, err := url.Parse(a)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("bad proxy address %q", a)
		}
		p.list = append(p.list, u)
	}
	return p, nil
}

func (p *RoundRobinProxy) Pick(*http.Request) (*url.URL, error) {
	if len(p.list) == 0 {
		return nil, nil
	}
	i := p.next.Add(1) - 1
	return p.list[i%uint64(len(p.list))], nil
}

// Len: количество прокси в ротации.
func (p *RoundRobinProxy) Len() int { return len(p.list) }
