package engine

import (
	"testing"

	"github.com/hailam/shogiplay/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x1234_5678_9ABC_DEF0)
	move := board.NewMove(board.Square(60), board.Square(59))

	tt.Store(hash, 7, 123, TTExact, move)

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatal("stored entry not found")
	}
	if entry.BestMove != move || entry.Score != 123 || entry.Depth != 7 || entry.Flag != TTExact {
		t.Errorf("got %+v", entry)
	}
}

func TestTTKeyFragmentMismatchMisses(t *testing.T) {
	tt := NewTranspositionTable(1)
	a := uint64(0x1111_1111_0000_0042)
	b := uint64(0x2222_2222_0000_0042) // same cluster, different key fragment

	tt.Store(a, 5, 10, TTLowerBound, board.NoMove)
	if _, ok := tt.Probe(b); ok {
		t.Fatal("probe with a different key fragment must miss")
	}
	if _, ok := tt.Probe(a); !ok {
		t.Fatal("original entry lost")
	}
}

func TestTTBusyGate(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCD_0000_0000_0007)
	tt.Store(hash, 3, 1, TTExact, board.NoMove)

	c := tt.cluster(hash)
	if !c.lock() {
		t.Fatal("gate should be free")
	}
	if _, ok := tt.Probe(hash); ok {
		t.Error("probe must miss while the gate is held")
	}
	tt.Store(hash, 9, 99, TTExact, board.NoMove)
	c.unlock()

	entry, ok := tt.Probe(hash)
	if !ok || entry.Depth != 3 {
		t.Errorf("store through a busy gate must be dropped, got %+v", entry)
	}
}

func TestTTKeepsMoveOnMovelessStore(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x0F0F_0F0F_0000_1000)
	move := board.NewDrop(board.Gold, board.Square(40))

	tt.Store(hash, 4, 50, TTLowerBound, move)
	tt.Store(hash, 6, -20, TTUpperBound, board.NoMove)

	entry, _ := tt.Probe(hash)
	if entry.BestMove != move {
		t.Errorf("best move = %v, want %v", entry.BestMove, move)
	}
}

func TestTTReplacementPrefersOldGeneration(t *testing.T) {
	tt := NewTranspositionTable(1)
	base := uint64(0x55)
	for i := 0; i < clusterSize; i++ {
		tt.Store(base|uint64(i+1)<<32, 20, 0, TTExact, board.NoMove)
	}
	tt.NewSearch()
	fresh := base | uint64(99)<<32
	tt.Store(fresh, 1, 0, TTExact, board.NoMove)

	if _, ok := tt.Probe(fresh); !ok {
		t.Fatal("new entry should replace an entry of an older search")
	}
}

func TestTTResizeDegrades(t *testing.T) {
	tt := NewTranspositionTable(1)
	calls := 0
	tt.alloc = func(n uint64) ([]ttCluster, error) {
		calls++
		if n > 1<<16 {
			return nil, errAllocFailed
		}
		return make([]ttCluster, n), nil
	}

	got := tt.Resize(64)
	if got >= 64 || got < 1 {
		t.Fatalf("Resize(64) = %d, want a smaller size", got)
	}
	if calls < 2 {
		t.Errorf("expected retries, got %d calls", calls)
	}
	if tt.SizeMB() != got {
		t.Errorf("SizeMB = %d, want %d", tt.SizeMB(), got)
	}

	// the table keeps working after degrading
	tt.Store(7, 1, 2, TTExact, board.NoMove)
	if _, ok := tt.Probe(7); !ok {
		t.Error("degraded table lost a store")
	}
}

func TestTTResizeFailureKeepsTable(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.alloc = func(uint64) ([]ttCluster, error) { return nil, errAllocFailed }

	if got := tt.Resize(8); got != 1 {
		t.Errorf("Resize = %d, want the previous 1 MB", got)
	}
	tt.Store(11, 1, 2, TTExact, board.NoMove)
	if _, ok := tt.Probe(11); !ok {
		t.Error("table unusable after failed resize")
	}
}

func TestMateScoreAdjustment(t *testing.T) {
	tests := []struct {
		score, ply int
	}{
		{MateScore - 5, 3},
		{-MateScore + 7, 4},
		{150, 10},
	}
	for _, tc := range tests {
		stored := AdjustScoreToTT(tc.score, tc.ply)
		if got := AdjustScoreFromTT(stored, tc.ply); got != tc.score {
			t.Errorf("round trip of %d at ply %d = %d", tc.score, tc.ply, got)
		}
	}
	// a mate found 5 plies below ply 3 is 8 plies from the root, 6 from ply 2
	stored := AdjustScoreToTT(MateScore-8, 3)
	if got := AdjustScoreFromTT(stored, 2); got != MateScore-7 {
		t.Errorf("mate distance not rebased: %d", got)
	}
}

func TestHashFull(t *testing.T) {
	tt := NewTranspositionTable(1)
	if tt.HashFull() != 0 {
		t.Fatal("empty table should report 0")
	}
	for i := uint64(0); i < 4000; i++ {
		tt.Store(i|i<<32, 1, 0, TTExact, board.NoMove)
	}
	if tt.HashFull() == 0 {
		t.Error("HashFull should grow after stores")
	}
	tt.Clear()
	if tt.HashFull() != 0 {
		t.Error("Clear should empty the table")
	}
}
