package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog/log"

	"github.com/hailam/shogiplay/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	ttEmpty      TTFlag = iota
	TTExact             // Exact score
	TTLowerBound        // Failed high (beta cutoff)
	TTUpperBound        // Failed low
)

const (
	clusterSize   = 4
	generationMax = 64
	minHashMB     = 1
)

// TTEntry represents an entry in the transposition table.
// Only the upper 32 bits of the hash are kept; the lower bits select the cluster.
type TTEntry struct {
	Key      uint32
	BestMove board.Move
	Score    int16
	Depth    int8
	Flag     TTFlag
	Age      uint8
}

// ttCluster groups entries behind a gate that is taken with CAS.
// A busy gate makes the probe miss and the store drop.
type ttCluster struct {
	gate    int32
	entries [clusterSize]TTEntry
}

// TranspositionTable is a hash table for storing search results.
// It is shared by every worker without locks.
type TranspositionTable struct {
	clusters []ttCluster
	mask     uint64
	sizeMB   int
	age      atomic.Uint32

	alloc func(n uint64) ([]ttCluster, error)
}

var errAllocFailed = errors.New("transposition table allocation failed")

// allocClusters turns a makeslice panic into an error.
func allocClusters(n uint64) (c []ttCluster, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errAllocFailed, r)
		}
	}()
	return make([]ttCluster, n), nil
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{alloc: allocClusters}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table. When the allocation fails the size is halved
// until it succeeds or reaches 1 MB. It returns the size actually in use.
func (tt *TranspositionTable) Resize(sizeMB int) int {
	sizeMB = max(sizeMB, minHashMB)
	clusterBytes := uint64(unsafe.Sizeof(ttCluster{}))

	for {
		n := roundDownToPowerOf2(uint64(sizeMB) << 20 / clusterBytes)
		clusters, err := tt.alloc(n)
		if err == nil {
			tt.clusters = clusters
			tt.mask = n - 1
			tt.sizeMB = sizeMB
			tt.age.Store(0)
			return sizeMB
		}
		if sizeMB <= minHashMB {
			// Nothing smaller to try; keep whatever table we had.
			log.Error().Err(err).Msg("tt-alloc-failed")
			if tt.clusters == nil {
				tt.clusters = make([]ttCluster, 1)
				tt.mask = 0
			}
			return tt.sizeMB
		}
		log.Warn().Err(err).Int("mb", sizeMB).Msg("tt-alloc-degraded")
		sizeMB /= 2
	}
}

// SizeMB returns the size in use in megabytes.
func (tt *TranspositionTable) SizeMB() int {
	return tt.sizeMB
}

func (tt *TranspositionTable) cluster(hash uint64) *ttCluster {
	return &tt.clusters[hash&tt.mask]
}

func (c *ttCluster) lock() bool {
	return atomic.CompareAndSwapInt32(&c.gate, 0, 1)
}

func (c *ttCluster) unlock() {
	atomic.StoreInt32(&c.gate, 0)
}

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns empty entry and false.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	c := tt.cluster(hash)
	if !c.lock() {
		return TTEntry{}, false
	}
	key := uint32(hash >> 32)
	var entry TTEntry
	found := false
	for i := range c.entries {
		if c.entries[i].Flag != ttEmpty && c.entries[i].Key == key {
			entry, found = c.entries[i], true
			break
		}
	}
	c.unlock()
	return entry, found
}

// Store saves a position in the transposition table.
// Replacement prefers the same key, then an empty slot, then the shallowest
// entry with older generations counted as 100 plies shallower.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	c := tt.cluster(hash)
	if !c.lock() {
		return
	}
	key := uint32(hash >> 32)
	gen := uint8(tt.age.Load())

	victim := 0
	worst := Infinity
	for i := range c.entries {
		e := &c.entries[i]
		if e.Flag == ttEmpty || e.Key == key {
			victim = i
			break
		}
		value := int(e.Depth)
		if e.Age != gen {
			value -= 100
		}
		if value < worst {
			worst, victim = value, i
		}
	}

	e := &c.entries[victim]
	if bestMove == board.NoMove && e.Flag != ttEmpty && e.Key == key {
		bestMove = e.BestMove
	}
	*e = TTEntry{
		Key:      key,
		BestMove: bestMove,
		Score:    int16(clamp(score, -Infinity, Infinity)),
		Depth:    int8(clamp(depth, 0, MaxPly-1)),
		Flag:     flag,
		Age:      gen,
	}
	c.unlock()
}

// NewSearch advances the generation used for replacement decisions.
func (tt *TranspositionTable) NewSearch() {
	for {
		old := tt.age.Load()
		if tt.age.CompareAndSwap(old, (old+1)%generationMax) {
			return
		}
	}
}

// Clear clears the transposition table. It must not run during a search.
func (tt *TranspositionTable) Clear() {
	clear(tt.clusters)
	tt.age.Store(0)
}

// HashFull returns the permille of sampled entries written by the current search.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.clusters))
	gen := uint8(tt.age.Load())
	used, seen := 0, 0
	for i := 0; i < sample; i++ {
		c := &tt.clusters[i]
		if !c.lock() {
			continue
		}
		for j := range c.entries {
			if c.entries[j].Flag != ttEmpty && c.entries[j].Age == gen {
				used++
			}
		}
		c.unlock()
		seen += clusterSize
	}
	if seen == 0 {
		return 0
	}
	return used * 1000 / seen
}

// AdjustScoreFromTT converts a stored mate score to the distance from the current ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > mateBound {
		return score - ply
	}
	if score < -mateBound {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > mateBound {
		return score + ply
	}
	if score < -mateBound {
		return score - ply
	}
	return score
}
