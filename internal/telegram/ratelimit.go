package telegram

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// rateLimiter drops messages arriving faster than one per minGap per chat.
// The LRU bound keeps memory flat no matter how many chats pass through.
type rateLimiter struct {
	mu     sync.Mutex
	last   *lru.Cache[int64, time.Time]
	minGap time.Duration
	now    func() time.Time
}

func newRateLimiter(size int, minGap time.Duration) *rateLimiter {
	cache, _ := lru.New[int64, time.Time](size) // only errors on size <= 0
	return &rateLimiter{last: cache, minGap: minGap, now: time.Now}
}

// Allow reports whether a message from the chat may be handled now.
func (l *rateLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if prev, ok := l.last.Get(chatID); ok && now.Sub(prev) < l.minGap {
		return false
	}
	l.last.Add(chatID, now)
	return true
}
