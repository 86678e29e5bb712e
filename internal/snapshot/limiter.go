package snapshot

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter: адаптивная обёртка над rate.Limiter. После троттлинга сайта
// скорость падает вдвое и ставится пауза, после серии удачных запросов
// скорость поднимается шагом до максимума.
// nil-лимитер ничего не ограничивает.
type Limiter struct {
	mu        sync.Mutex
	lim       *rate.Limiter
	curr      rate.Limit
	min, max  rate.Limit
	incStep   rate.Limit
	incEvery  int
	okCount   int
	coolUntil time.Time

	now func() time.Time
}

// NewLimiter создаёт лимитер. rps <= 0 означает «без ограничений» (nil).
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		lim:      rate.NewLimiter(rate.Limit(rps), burst),
		curr:     rate.Limit(rps),
		min:      rate.Limit(rps / 4),
		max:      rate.Limit(rps),
		incStep:  rate.Limit(rps / 4),
		incEvery: 5,
		now:      time.Now,
	}
}

// Take ждёт окончания паузы и свободный токен. false: контекст отменён раньше.
func (l *Limiter) Take(ctx context.Context) bool {
	if l == nil {
		return ctx.Err() == nil
	}
	l.mu.Lock()
	cool := l.coolUntil
	l.mu.Unlock()

	if d := cool.Sub(l.now()); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false
		}
	}
	return l.lim.Wait(ctx) == nil
}

// Succeed отмечает удачный запрос; каждые incEvery удач скорость растёт на шаг.
func (l *Limiter) Succeed() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.okCount++
	if l.okCount < l.incEvery {
		return
	}
	l.okCount = 0
	next := l.curr + l.incStep
	if next > l.max {
		next = l.max
	}
	if next != l.curr {
		l.curr = next
		l.lim.SetLimit(next)
	}
}

// Penalize снижает скорость вдвое (не ниже минимума); retryAfter > 0 ставит паузу.
func (l *Limiter) Penalize(retryAfter time.Duration) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.curr * 0.5
	if next < l.min {
		next = l.min
	}
	if next != l.curr {
		l.curr = next
		l.lim.SetLimit(next)
	}
	l.okCount = 0
	if retryAfter > 0 {
		if until := l.now().Add(retryAfter); until.After(l.coolUntil) {
			l.coolUntil = until
		}
	}
}

// Rate: текущая скорость, запросов в секунду.
func (l *Limiter) Rate() float64 {
	if l == nil {
		return float64(rate.Inf)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return float64(l.curr)
}

func parseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
