// Package ratelimit 按用户的令牌桶限流
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// Pool 每个 key 独立的令牌桶，长时间未使用的 key 在访问时顺带清理
type Pool struct {
	mu        sync.Mutex
	m         map[uint]*entry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

// NewPool rps<=0 时不限流
func NewPool(rps float64, burst int) *Pool {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pool{
		m:         make(map[uint]*entry),
		limit:     limit,
		burst:     burst,
		ttl:       10 * time.Minute,
		lastSweep: time.Now(),
	}
}

// Allow 非阻塞判断 key 是否还有令牌
func (p *Pool) Allow(key uint) bool {
	now := time.Now()

	p.mu.Lock()
	if now.Sub(p.lastSweep) > p.ttl {
		cutoff := now.Add(-p.ttl)
		for k, e := range p.m {
			if e.lastSeen.Before(cutoff) {
				delete(p.m, k)
			}
		}
		p.lastSweep = now
	}
	e, ok := p.m[key]
	if !ok {
		e = &entry{l: rate.NewLimiter(p.limit, p.burst)}
		p.m[key] = e
	}
	e.lastSeen = now
	p.mu.Unlock()

	return e.l.AllowN(now, 1)
}
