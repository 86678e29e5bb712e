package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

// GoneEvent: сигнал «товар снят с продажи» от цикла перепроверки.
type GoneEvent struct {
	ItemID int64
	URL    string
	Site   string
}

// GoneQueue: буферизованная очередь GoneEvent между циклом перепроверки и
// очисткой. Один и тот же товар не ставится в очередь повторно, пока не
// истёк TTL дедупликации или не вызван Forget.
type GoneQueue struct {
	ch   chan GoneEvent
	mu   sync.Mutex
	seen *freecache.Cache
	ttl  int
}

const goneCacheBytes = 1 << 20

func NewGoneQueue(size int, dedupTTL time.Duration) *GoneQueue {
	if size <= 0 {
		size = 1
	}
	ttl := int(dedupTTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	return &GoneQueue{
		ch:   make(chan GoneEvent, size),
		seen: freecache.NewCache(goneCacheBytes),
		ttl:  ttl,
	}
}

func goneKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }

// Publish ставит событие в очередь. false: дубль или очередь переполнена.
func (q *GoneQueue) Publish(ev GoneEvent) bool {
	key := goneKey(ev.ItemID)

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, err := q.seen.Get(key); err == nil {
		return false
	}
	select {
	case q.ch <- ev:
		_ = q.seen.Set(key, []byte{1}, q.ttl)
		return true
	default:
		return false
	}
}

// Events: канал для потребителя.
func (q *GoneQueue) Events() <-chan GoneEvent { return q.ch }

// Forget снимает дедупликацию, чтобы товар можно было поставить снова.
func (q *GoneQueue) Forget(itemID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seen.Del(goneKey(itemID))
}

// Len: число событий в очереди.
func (q *GoneQueue) Len() int { return len(q.ch) }
