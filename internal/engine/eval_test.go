package engine

import (
	"testing"

	"github.com/hailam/shogiplay/internal/board"
)

func TestEvaluateStartIsBalanced(t *testing.T) {
	pos := board.NewPosition()
	if got := Evaluate(pos); got != 0 {
		t.Errorf("start position = %d, want 0", got)
	}
	if got := EvaluateMaterial(pos); got != 0 {
		t.Errorf("start material = %d, want 0", got)
	}
}

func TestEvaluateSideToMove(t *testing.T) {
	black := mustPosition(t, "4k4/9/9/9/9/9/9/9/4K4 b R 1")
	white := mustPosition(t, "4k4/9/9/9/9/9/9/9/4K4 w R 1")
	b, w := Evaluate(black), Evaluate(white)
	if b <= 0 {
		t.Errorf("rook in hand should favour black, got %d", b)
	}
	if b != -w {
		t.Errorf("evaluation not antisymmetric: %d vs %d", b, w)
	}
}

func TestHandPieceWorthMoreThanBoardPiece(t *testing.T) {
	inHand := mustPosition(t, "4k4/9/9/9/9/9/9/9/4K4 b G 1")
	onBoard := mustPosition(t, "4k4/9/9/9/9/9/9/G8/4K4 b - 1")
	if EvaluateMaterial(inHand) <= EvaluateMaterial(onBoard) {
		t.Errorf("hand gold %d should outweigh board gold %d",
			EvaluateMaterial(inHand), EvaluateMaterial(onBoard))
	}
}

func TestEvalCache(t *testing.T) {
	c := NewEvalCache(1)
	const hash = 0xDEADBEEF12345678

	if _, ok := c.Probe(hash); ok {
		t.Fatal("empty cache hit")
	}
	for _, v := range []int{0, 1, -1, 1234, -mateBound + 1} {
		c.Store(hash, v)
		got, ok := c.Probe(hash)
		if !ok || got != v {
			t.Errorf("Probe after Store(%d) = %d, %v", v, got, ok)
		}
	}
	if _, ok := c.Probe(hash ^ 1<<63); ok {
		t.Error("different key hit the same slot")
	}
	c.Clear()
	if _, ok := c.Probe(hash); ok {
		t.Error("hit after Clear")
	}
}

type countingEvaluator struct {
	calls int
}

func (e *countingEvaluator) Evaluate(pos *board.Position) int {
	e.calls++
	return 42
}

func TestCachedEvaluator(t *testing.T) {
	inner := &countingEvaluator{}
	ev := NewCachedEvaluator(inner, NewEvalCache(1))
	pos := board.NewPosition()

	for i := 0; i < 3; i++ {
		if got := ev.Evaluate(pos); got != 42 {
			t.Fatalf("Evaluate = %d", got)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner evaluator called %d times, want 1", inner.calls)
	}
}

func TestNNUEEvaluatorRandomWeights(t *testing.T) {
	if testing.Short() {
		t.Skip("network initialisation is slow")
	}
	ev, err := NewNNUEEvaluator("")
	if err != nil {
		t.Fatal(err)
	}
	pos := board.NewPosition()
	got := ev.Evaluate(pos)
	if got != ev.Evaluate(pos) {
		t.Error("evaluation is not deterministic")
	}
	if IsMateScore(got) {
		t.Errorf("network returned a mate score %d", got)
	}
	if _, err := NewNNUEEvaluator("/nonexistent/net.bin"); err == nil {
		t.Error("missing weights file accepted")
	}
}
