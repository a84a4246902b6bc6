package engine

import (
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/hailam/shogiplay/internal/board"
)

// defaultPollMask sets how often a worker publishes nodes and checks for a stop.
const defaultPollMask = 4095

// sharedState is what all workers of one engine share.
type sharedState struct {
	tt      *TranspositionTable
	history *SharedHistory
	eval    Evaluator
	tm      *TimeManager

	stop  atomic.Bool
	nodes atomic.Uint64
}

// Worker represents a search worker for parallel Lazy SMP search.
// Each worker has its own position copy, stack and continuation history;
// the transposition table and butterfly history are shared.
type Worker struct {
	id   int
	main bool

	pos     *board.Position
	orderer *MoveOrderer
	corr    *CorrectionHistory
	stack   searchStack
	pv      PVTable

	nodes     uint64
	published uint64
	seldepth  int
	rootDepth int
	halted    bool
	pollMask  uint64

	config SearchConfig
	shared *sharedState

	// Root move filters: allowed restricts the root to a subset (empty means
	// all moves), excluded holds the first moves of earlier MultiPV lines.
	allowed  []board.Move
	excluded []board.Move
	shuffle  bool
}

// newWorker creates a search worker bound to the shared state.
func newWorker(id int, shared *sharedState) *Worker {
	return &Worker{
		id:       id,
		main:     id == 0,
		orderer:  NewMoveOrderer(shared.history),
		corr:     NewCorrectionHistory(),
		shared:   shared,
		pollMask: defaultPollMask,
		shuffle:  id != 0,
	}
}

// ID returns the worker's ID.
func (w *Worker) ID() int {
	return w.id
}

// Nodes returns the number of nodes searched by this worker.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// prepare initializes the worker for a new search with a position copy.
func (w *Worker) prepare(pos *board.Position, cfg SearchConfig, allowed []board.Move, pollMask uint64) {
	w.pos = pos.Copy()
	w.config = cfg
	w.allowed = allowed
	w.excluded = w.excluded[:0]
	w.nodes, w.published = 0, 0
	w.seldepth, w.rootDepth = 0, 0
	w.halted = false
	w.pollMask = pollMask
	w.pv.length[0] = 0
	w.stack.reset(&w.orderer.empty)
	log.Debug().Int("worker", w.id).Str("side", w.pos.SideToMove.String()).Msg("worker-prepare")
}

// clear wipes the learned tables for a new game.
func (w *Worker) clear() {
	w.orderer.Clear()
	w.corr.Clear()
}

// publish adds the nodes counted since the last publish to the shared total.
func (w *Worker) publish() {
	w.shared.nodes.Add(w.nodes - w.published)
	w.published = w.nodes
}

// checkStop is called once per node. The main worker also polls the time
// manager and raises the shared stop flag for everyone.
func (w *Worker) checkStop() bool {
	if w.halted {
		return true
	}
	if w.nodes&w.pollMask == 0 {
		w.publish()
		if w.main && w.shared.tm.ShouldStop(w.shared.nodes.Load()) {
			w.shared.stop.Store(true)
		}
		if w.shared.stop.Load() {
			w.halted = true
		}
	}
	return w.halted
}

// evaluate returns the static evaluation of the worker's position.
func (w *Worker) evaluate() int {
	return w.shared.eval.Evaluate(w.pos)
}

// rootAllowed applies the searchmoves restriction and the MultiPV exclusions.
func (w *Worker) rootAllowed(m board.Move) bool {
	if len(w.allowed) > 0 && !slices.Contains(w.allowed, m) {
		return false
	}
	return !slices.Contains(w.excluded, m)
}

// searchRoot runs one depth of the root search inside [alpha, beta].
func (w *Worker) searchRoot(depth, alpha, beta int) int {
	w.rootDepth = depth
	return w.negamax(depth, 0, alpha, beta)
}

// aspiration searches depth with a window around the previous score and
// widens it until the result falls inside.
func (w *Worker) aspiration(depth, prev int, havePrev bool) int {
	alpha, beta := -Infinity, Infinity
	window := aspirationWindow
	if w.config.Aspiration && havePrev && depth >= aspirationDepth && !IsMateScore(prev) {
		alpha = max(prev-window, -Infinity)
		beta = min(prev+window, Infinity)
	}
	for {
		score := w.searchRoot(depth, alpha, beta)
		if w.halted {
			return score
		}
		switch {
		case score <= alpha && alpha > -Infinity:
			beta = (alpha + beta) / 2
			alpha = max(score-window, -Infinity)
		case score >= beta && beta < Infinity:
			beta = min(score+window, Infinity)
		default:
			return score
		}
		window *= 2
	}
}

// helperLoop is the iterative deepening of a helper. Odd helpers run one
// ply deeper so the threads spread over neighbouring depths.
func (w *Worker) helperLoop(maxDepth int) {
	for d := 1; d <= maxDepth; d++ {
		depth := min(d+w.id%2, maxDepth)
		w.searchRoot(depth, -Infinity, Infinity)
		if w.halted || w.shared.stop.Load() {
			break
		}
	}
	w.publish()
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (w *Worker) negamax(depth, ply, alpha, beta int) int {
	cfg := w.config
	pvNode := beta-alpha > 1
	root := ply == 0

	w.pv.length[ply] = ply

	// leave room for pv.length[ply+1] and the ply+2 killer reset
	if ply >= MaxPly-1 {
		return w.evaluate()
	}
	if depth <= 0 {
		return w.quiescence(ply, 0, alpha, beta)
	}

	w.nodes++
	if w.checkStop() {
		return 0
	}
	w.seldepth = max(w.seldepth, ply)

	pos := w.pos
	node := w.stack.at(ply)
	prev := w.stack.at(ply - 1)
	w.stack.at(ply + 2).Killers = [2]board.Move{}

	if !root {
		switch pos.CheckRepetition(ply) {
		case board.RepetitionDraw:
			return 0
		case board.RepetitionWin:
			return MateScore - ply
		case board.RepetitionLoss:
			return -MateScore + ply
		}

		// Mate distance pruning
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	// Probe transposition table
	ttMove := board.NoMove
	if entry, found := w.shared.tt.Probe(pos.Hash); found {
		ttMove = entry.BestMove
		if !pvNode && !root && int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch {
			case entry.Flag == TTExact,
				entry.Flag == TTLowerBound && score >= beta,
				entry.Flag == TTUpperBound && score <= alpha:
				return score
			}
		}
	}

	inCheck := pos.InCheck()
	rawEval, eval := noEval, noEval
	if !inCheck {
		rawEval = w.evaluate()
		eval = rawEval
		if cfg.CorrectionHistory {
			eval = clamp(rawEval+w.corr.Get(pos), -mateBound+1, mateBound-1)
		}
	}
	node.StaticEval = eval
	improving := false
	if before := w.stack.at(ply - 2).StaticEval; eval != noEval && before != noEval {
		improving = eval > before
	}

	// Reverse futility pruning
	if cfg.ReverseFutility && !pvNode && !inCheck && depth <= rfpMaxDepth && abs(beta) < mateBound {
		margin := rfpMargin * depth
		if improving {
			margin -= rfpMargin / 2
		}
		if eval-margin >= beta {
			return eval
		}
	}

	// Null move pruning
	if cfg.NullMove && !pvNode && !inCheck && !prev.Null && depth >= 3 && eval >= beta && abs(beta) < mateBound {
		r := 3 + depth/4
		node.CurrentMove = board.NoMove
		node.MovedPiece = board.NoPiece
		node.Null = true
		node.ContHist = &w.orderer.empty

		undo := pos.MakeNullMove()
		score := -w.negamax(depth-1-r, ply+1, -beta, -beta+1)
		pos.UnmakeNullMove(undo)
		node.Null = false

		if w.halted {
			return 0
		}
		if score >= beta {
			if score >= mateBound {
				score = beta
			}
			return score
		}
	}

	futile := cfg.Futility && !pvNode && !inCheck && depth <= futilityMaxDepth &&
		abs(alpha) < mateBound && eval+futilityMargins[depth] <= alpha

	pos.GenerateLegal(&node.Moves)
	if node.Moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	prev1 := prev.ContHist
	prev2 := w.stack.at(ply - 2).ContHist
	if root && w.shuffle {
		frand.Shuffle(node.Moves.Len(), node.Moves.Swap)
	}
	w.orderer.ScoreMoves(pos, node, prev1, prev2, w.orderer.CounterMove(prev), ttMove)

	origAlpha := alpha
	bestScore := -Infinity
	bestMove := board.NoMove
	searched := 0
	node.NumQuiets = 0

	for i := 0; i < node.Moves.Len(); i++ {
		PickMove(&node.Moves, node.Scores[:], i)
		m := node.Moves.Get(i)

		if root && !w.rootAllowed(m) {
			continue
		}

		capture := m.IsCapture(pos)
		quiet := !capture && !m.IsPromotion()

		if !root && searched > 0 && bestScore > -mateBound {
			if futile && quiet {
				continue
			}
			if cfg.SEEPruning && !inCheck && depth <= futilityMaxDepth && SEE(pos, m) < seePruneMargin*depth {
				continue
			}
		}

		piece := m.MovedPiece(pos)
		hist := 0
		if quiet {
			hist = w.shared.history.Get(pos.SideToMove, m) + int(prev1[piece.Type()][m.To()])
		}

		node.Undo = pos.MakeMove(m)
		if !node.Undo.Valid {
			continue
		}
		node.CurrentMove = m
		node.MovedPiece = piece
		node.Null = false
		node.ContHist = w.orderer.continuation(piece, m.To())
		searched++

		newDepth := depth - 1
		if pos.InCheck() && ply < 2*w.rootDepth {
			newDepth++
		}

		var score int
		if searched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha)
		} else {
			reduction := 0
			if cfg.LateMoveReduction && depth >= 3 && searched > 3 && quiet && !inCheck {
				reduction = lmrReductions[min(depth, 63)][min(searched, 63)]
				if !pvNode {
					reduction++
				}
				if !improving {
					reduction++
				}
				reduction -= hist / 8192
				reduction = clamp(reduction, 0, max(newDepth-1, 0))
			}

			score = -w.negamax(newDepth-reduction, ply+1, -alpha-1, -alpha)
			if reduction > 0 && score > alpha {
				score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha)
			}
			if pvNode && score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha)
			}
		}

		pos.UnmakeMove(m, node.Undo)

		if w.halted {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				alpha = score
				w.pv.update(ply, m)
				if score >= beta {
					break
				}
			}
		}

		if quiet && node.NumQuiets < len(node.Quiets) {
			node.Quiets[node.NumQuiets] = m
			node.NumQuiets++
		}
	}

	if searched == 0 {
		return alpha
	}

	if bestScore >= beta && bestMove.IsQuiet(pos) {
		w.orderer.UpdateQuietStats(pos, node, prev, prev1, prev2, bestMove, node.Quiets[:node.NumQuiets], depth)
	}

	flag := TTUpperBound
	switch {
	case bestScore >= beta:
		flag = TTLowerBound
	case bestScore > origAlpha:
		flag = TTExact
	}

	if cfg.CorrectionHistory && !inCheck && abs(bestScore) < mateBound &&
		(bestMove == board.NoMove || !bestMove.IsCapture(pos)) &&
		!(flag == TTLowerBound && bestScore <= eval) &&
		!(flag == TTUpperBound && bestScore >= eval) {
		w.corr.Update(pos, bestScore, rawEval, depth)
	}

	// A restricted root result must not stand in for the whole position.
	if !root || (len(w.excluded) == 0 && len(w.allowed) == 0) {
		w.shared.tt.Store(pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	}

	return bestScore
}

// quiescence searches captures and promotions (all evasions when in check)
// until the position is quiet.
func (w *Worker) quiescence(ply, qPly, alpha, beta int) int {
	w.pv.length[ply] = ply

	w.nodes++
	if w.checkStop() {
		return 0
	}
	w.seldepth = max(w.seldepth, ply)

	pos := w.pos
	inCheck := pos.InCheck()
	if ply >= MaxPly-1 || qPly >= maxQuiescencePly {
		if inCheck {
			return 0
		}
		return w.evaluate()
	}

	bestScore := -Infinity
	standPat := noEval
	if !inCheck {
		standPat = w.evaluate()
		if standPat >= beta {
			return standPat
		}
		alpha = max(alpha, standPat)
		bestScore = standPat
	}

	node := w.stack.at(ply)
	pos.GenerateCaptures(&node.Moves)
	if node.Moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return bestScore
	}
	w.orderer.ScoreCaptures(pos, node)

	for i := 0; i < node.Moves.Len(); i++ {
		PickMove(&node.Moves, node.Scores[:], i)
		m := node.Moves.Get(i)

		if !inCheck {
			// Delta pruning
			gain := 0
			if m.IsCapture(pos) {
				gain = pos.PieceAt(m.To()).Value()
			}
			if m.IsPromotion() {
				mover := m.MovedPiece(pos)
				gain += mover.Promote().Value() - mover.Value()
			}
			if standPat+gain+deltaMargin <= alpha {
				continue
			}
			if SEE(pos, m) < 0 {
				continue
			}
		}

		node.Undo = pos.MakeMove(m)
		if !node.Undo.Valid {
			continue
		}
		score := -w.quiescence(ply+1, qPly+1, -beta, -alpha)
		pos.UnmakeMove(m, node.Undo)

		if w.halted {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	return bestScore
}
