package engine

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/shogiplay/internal/board"
)

// RootLine is one completed principal variation of the root.
type RootLine struct {
	Score    int
	Depth    int
	SelDepth int
	PV       []board.Move
}

// searchRequest is one go command as seen by the coordinator.
type searchRequest struct {
	pos      *board.Position
	maxDepth int
	multiPV  int
	skill    int
	allowed  []board.Move
	config   SearchConfig
	pollMask uint64

	// wake is closed by a ponder hit.
	wake <-chan struct{}
	// report receives progress; it must not block.
	report func(SearchUpdate)
}

// searchResult is what the coordinator hands back after a search.
type searchResult struct {
	best   board.Move
	ponder board.Move
	lines  []RootLine
	nodes  uint64
}

// coordinator runs lazy SMP: worker 0 drives iterative deepening and owns
// reporting; the other workers search the same root and only feed the
// shared tables.
type coordinator struct {
	shared  *sharedState
	workers []*Worker
}

func newCoordinator(shared *sharedState, threads int) *coordinator {
	c := &coordinator{shared: shared}
	c.resize(threads)
	return c
}

// resize changes the number of workers, keeping the existing ones.
func (c *coordinator) resize(threads int) {
	threads = max(threads, 1)
	for len(c.workers) < threads {
		c.workers = append(c.workers, newWorker(len(c.workers), c.shared))
	}
	c.workers = c.workers[:threads]
}

// clear resets every worker's learned tables.
func (c *coordinator) clear() {
	for _, w := range c.workers {
		w.clear()
	}
}

// age decays the per-worker histories between searches.
func (c *coordinator) age() {
	for _, w := range c.workers {
		w.orderer.Age()
	}
}

// rootMoves lists the legal root moves that pass the searchmoves filter.
func rootMoves(pos *board.Position, allowed []board.Move) []board.Move {
	moves := pos.GenerateLegalMoves().Slice()
	if len(allowed) == 0 {
		return slices.Clone(moves)
	}
	return slices.DeleteFunc(slices.Clone(moves), func(m board.Move) bool {
		return !slices.Contains(allowed, m)
	})
}

// run searches req until a limit, a stop or ctx cancellation.
func (c *coordinator) run(ctx context.Context, req searchRequest) searchResult {
	sh := c.shared
	sh.stop.Store(false)
	sh.nodes.Store(0)
	sh.tt.NewSearch()

	stopOnCancel := context.AfterFunc(ctx, func() { sh.stop.Store(true) })
	defer stopOnCancel()

	moves := rootMoves(req.pos, req.allowed)
	if len(moves) == 0 {
		log.Info().Msg("search-no-legal-moves")
		c.waitForStop(ctx, req.wake)
		return searchResult{}
	}
	allowed := req.allowed
	if len(allowed) > 0 {
		allowed = moves
	}

	for _, w := range c.workers {
		w.prepare(req.pos, req.config, allowed, req.pollMask)
	}

	log.Debug().Int("threads", len(c.workers)).Int("root-moves", len(moves)).Msg("lazy-smp-start")

	var g errgroup.Group
	for _, w := range c.workers[1:] {
		w := w
		g.Go(func() error {
			w.helperLoop(req.maxDepth)
			return nil
		})
	}

	res := c.iterate(req, moves)

	// the main worker reports only when the host may receive a move
	c.waitForStop(ctx, req.wake)

	sh.stop.Store(true)
	_ = g.Wait()
	c.workers[0].publish()
	res.nodes = sh.nodes.Load()

	log.Debug().Uint64("nodes", res.nodes).Str("best", res.best.String()).Msg("lazy-smp-done")
	return res
}

// waitForStop blocks while the time manager says the search is unbounded
// (pondering or infinite) until ctx ends. A ponder hit re-evaluates.
func (c *coordinator) waitForStop(ctx context.Context, wake <-chan struct{}) {
	for c.shared.tm.Unbounded() && !c.shared.stop.Load() {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			wake = nil
		}
	}
}

// iterate is the main worker's iterative deepening loop.
func (c *coordinator) iterate(req searchRequest, moves []board.Move) searchResult {
	w := c.workers[0]
	sh := c.shared
	tm := sh.tm

	multiPV := clamp(req.multiPV, 1, len(moves))
	var lines []RootLine
	stability, changes := 0, 0

	for depth := 1; depth <= req.maxDepth; depth++ {
		if sh.stop.Load() || tm.ShouldStop(sh.nodes.Load()) {
			break
		}

		w.excluded = w.excluded[:0]
		current := make([]RootLine, 0, multiPV)
		for pvIdx := 0; pvIdx < multiPV; pvIdx++ {
			prev, havePrev := 0, pvIdx < len(lines)
			if havePrev {
				prev = lines[pvIdx].Score
			}
			score := w.aspiration(depth, prev, havePrev)
			if w.halted || w.pv.length[0] == 0 {
				break
			}
			line := RootLine{Score: score, Depth: depth, SelDepth: w.seldepth, PV: w.pv.line()}
			current = append(current, line)
			w.excluded = append(w.excluded, line.PV[0])
		}

		if w.halted || len(current) < multiPV {
			// An interrupted first iteration still yields the move it found.
			if len(lines) == 0 && w.pv.length[0] > 0 {
				lines = []RootLine{{Depth: depth, SelDepth: w.seldepth, PV: w.pv.line()}}
			}
			break
		}

		slices.SortStableFunc(current, func(a, b RootLine) int { return b.Score - a.Score })
		if len(lines) > 0 && lines[0].PV[0] == current[0].PV[0] {
			stability++
			changes /= 2
		} else if len(lines) > 0 {
			stability = 0
			changes++
		}
		lines = current

		w.publish()
		for i, l := range lines {
			req.report(c.progress(i+1, l))
		}

		tm.AdjustForStability(stability, changes)
		// a mate is proven once the depth covers its distance
		if s := lines[0].Score; IsMateScore(s) && depth >= MateScore-abs(s) {
			break
		}
		if len(moves) == 1 && !tm.Unbounded() {
			break
		}
		if tm.SoftExpired() {
			break
		}
	}

	res := searchResult{lines: lines}
	if len(lines) == 0 {
		// Stopped before anything completed: play the first legal move.
		res.best = moves[0]
		return res
	}
	pick := 0
	if req.skill < MaxSkillLevel {
		pick = pickSkillLine(lines, req.skill)
	}
	res.best = lines[pick].PV[0]
	if len(lines[pick].PV) > 1 {
		res.ponder = lines[pick].PV[1]
	} else {
		res.ponder = c.ponderFromTT(req.pos, res.best)
	}
	return res
}

// progress builds the info update for one PV line.
func (c *coordinator) progress(multiPV int, l RootLine) SearchUpdate {
	tm := c.shared.tm
	nodes := c.shared.nodes.Load()
	elapsed := tm.Elapsed()
	var nps uint64
	if elapsed > 0 {
		nps = uint64(float64(nodes) / elapsed.Seconds())
	}
	return SearchUpdate{
		Depth:    l.Depth,
		SelDepth: l.SelDepth,
		MultiPV:  multiPV,
		Score:    l.Score,
		Nodes:    nodes,
		NPS:      nps,
		HashFull: c.shared.tt.HashFull(),
		Time:     elapsed.Truncate(time.Millisecond),
		PV:       l.PV,
	}
}

// ponderFromTT finds the expected reply to best when the PV is too short.
func (c *coordinator) ponderFromTT(pos *board.Position, best board.Move) board.Move {
	p := pos.Copy()
	undo := p.MakeMove(best)
	if !undo.Valid {
		return board.NoMove
	}
	entry, ok := c.shared.tt.Probe(p.Hash)
	if !ok || entry.BestMove == board.NoMove || !p.IsLegal(entry.BestMove) {
		return board.NoMove
	}
	return entry.BestMove
}
