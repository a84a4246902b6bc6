package engine

import (
	"sync/atomic"

	"github.com/hailam/shogiplay/internal/board"
)

const (
	evalMask = uint64(0xFFFF)
	keyMask  = ^evalMask
	evalZero = 32768
)

// EvalCache is a lock-free cache of static evaluations. Each slot packs the
// upper 48 hash bits and the evaluation into one word, so a torn read is
// impossible and a mismatching key is simply a miss.
type EvalCache struct {
	entries []atomic.Uint64
	mask    uint64
}

// NewEvalCache creates an evaluation cache with the given size in MB.
func NewEvalCache(sizeMB int) *EvalCache {
	n := roundDownToPowerOf2(uint64(max(sizeMB, 1)) << 20 / 8)
	return &EvalCache{
		entries: make([]atomic.Uint64, n),
		mask:    n - 1,
	}
}

// Probe returns the cached evaluation for hash.
func (c *EvalCache) Probe(hash uint64) (int, bool) {
	data := c.entries[hash&c.mask].Load()
	if data&evalMask == 0 || data&keyMask != hash&keyMask {
		return 0, false
	}
	return int(data&evalMask) - evalZero, true
}

// Store saves an evaluation. Scores are clamped so the packed value is never zero.
func (c *EvalCache) Store(hash uint64, eval int) {
	eval = clamp(eval, -evalZero+1, evalZero-1)
	c.entries[hash&c.mask].Store(hash&keyMask | uint64(eval+evalZero))
}

// Clear empties the cache.
func (c *EvalCache) Clear() {
	for i := range c.entries {
		c.entries[i].Store(0)
	}
}

// CachedEvaluator decorates an Evaluator with an EvalCache.
type CachedEvaluator struct {
	inner Evaluator
	cache *EvalCache
}

// NewCachedEvaluator wraps inner with cache.
func NewCachedEvaluator(inner Evaluator, cache *EvalCache) *CachedEvaluator {
	return &CachedEvaluator{inner: inner, cache: cache}
}

// Evaluate implements Evaluator.
func (e *CachedEvaluator) Evaluate(pos *board.Position) int {
	if eval, ok := e.cache.Probe(pos.Hash); ok {
		return eval
	}
	eval := e.inner.Evaluate(pos)
	e.cache.Store(pos.Hash, eval)
	return eval
}
