package engine

import "github.com/hailam/shogiplay/internal/board"

// noEval marks a node whose static evaluation was not computed (in check).
const noEval = -Infinity - 1

// SearchNode is the per-ply state of one worker's search. Nodes live in a
// fixed arena indexed by ply, so the recursion allocates nothing.
type SearchNode struct {
	Killers     [2]board.Move
	StaticEval  int
	CurrentMove board.Move
	MovedPiece  board.Piece
	Null        bool

	// ContHist is the continuation table selected by CurrentMove.
	ContHist *PieceToHistory

	Moves  board.MoveList
	Scores [board.MaxMoves]int
	Undo   board.UndoInfo

	// quiets searched without causing a cutoff, penalized on a later cutoff
	Quiets    [64]board.Move
	NumQuiets int
}

// searchStack is a worker's arena. Two sentinel nodes precede ply 0 so
// lookbacks of one and two plies need no bounds checks.
type searchStack struct {
	nodes [MaxPly + 3]SearchNode
}

const stackOffset = 2

// at returns the node of ply.
func (s *searchStack) at(ply int) *SearchNode {
	return &s.nodes[ply+stackOffset]
}

// reset prepares the arena for a new search.
func (s *searchStack) reset(sentinel *PieceToHistory) {
	for i := range s.nodes {
		n := &s.nodes[i]
		n.Killers = [2]board.Move{}
		n.StaticEval = noEval
		n.CurrentMove = board.NoMove
		n.MovedPiece = board.NoPiece
		n.Null = false
		n.ContHist = sentinel
	}
}
