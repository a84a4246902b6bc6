package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/shogiplay/internal/board"
)

// Engine errors.
var (
	ErrSearching          = errors.New("engine: search in progress")
	ErrUnknownOption      = errors.New("engine: unknown option")
	ErrInvalidOptionValue = errors.New("engine: invalid option value")
)

const (
	// maxSearchDepth caps iterative deepening below MaxPly so extensions fit.
	maxSearchDepth = MaxPly - 28

	evalCacheMB = 4

	// updateBuffer is the capacity of the channel returned by Go.
	updateBuffer = 128
)

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Control     TimeControl
	Depth       int      // Maximum depth (0 = no limit)
	SearchMoves []string // Root moves to consider, USI notation (empty = all)
}

// SearchUpdate is sent on the channel returned by Go. Progress updates carry
// one PV line each; the last update has Final set and carries the move.
type SearchUpdate struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    int
	Nodes    uint64
	NPS      uint64
	HashFull int // Permille of hash table used
	Time     time.Duration
	PV       []board.Move

	Final      bool
	BestMove   board.Move // NoMove when there is nothing to play
	PonderMove board.Move
	Forfeited  bool
}

// settings holds the option values.
type settings struct {
	Threads        int
	HashMB         int
	MultiPV        int
	Skill          int
	Ponder         bool
	NetworkDelay   int
	SlowMover      int
	ByoyomiPeriods int
	UseNNUE        bool
	EvalFile       string
}

// Engine is the shogi engine controller. It owns the root position, the
// shared tables and at most one running search.
type Engine struct {
	mu sync.Mutex

	pos       *board.Position
	shared    *sharedState
	coord     *coordinator
	evalCache *EvalCache
	clock     *ByoyomiClock
	config    SearchConfig

	settings settings
	options  []*Option

	// running search
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}
	woken  bool
}

// NewEngine creates a new shogi engine with the given transposition table size in MB.
func NewEngine(hashMB int) *Engine {
	hashMB = max(hashMB, 1)
	e := &Engine{
		pos:       board.NewPosition(),
		evalCache: NewEvalCache(evalCacheMB),
		config:    FullProfile,
	}
	e.shared = &sharedState{
		tt:      NewTranspositionTable(hashMB),
		history: NewSharedHistory(),
		tm:      NewTimeManager(DefaultTimeParams),
	}
	e.shared.eval = NewCachedEvaluator(MaterialEvaluator{}, e.evalCache)
	e.coord = newCoordinator(e.shared, 1)

	s := &e.settings
	e.options = []*Option{
		newIntOption("USI_Hash", &s.HashMB, hashMB, 1, 1<<16, e.resizeHash),
		newIntOption("Threads", &s.Threads, 1, 1, 256, func() error {
			e.coord.resize(s.Threads)
			return nil
		}),
		newIntOption("MultiPV", &s.MultiPV, 1, 1, 500, nil),
		newIntOption("Skill Level", &s.Skill, MaxSkillLevel, 0, MaxSkillLevel, nil),
		newBoolOption("USI_Ponder", &s.Ponder, false, nil),
		newIntOption("NetworkDelay", &s.NetworkDelay, int(DefaultTimeParams.Overhead/time.Millisecond), 0, 10000, e.applyTimeParams),
		newIntOption("SlowMover", &s.SlowMover, DefaultTimeParams.SlowMover, 10, 1000, e.applyTimeParams),
		newIntOption("ByoyomiPeriods", &s.ByoyomiPeriods, 1, 1, 100, nil),
		newStringOption("EvalFile", &s.EvalFile, "", e.loadEvaluator),
		newBoolOption("UseNNUE", &s.UseNNUE, false, e.loadEvaluator),
	}
	return e
}

// Options returns the engine options in declaration order.
func (e *Engine) Options() []*Option {
	return e.options
}

// OptionValue returns the current value of an option.
func (e *Engine) OptionValue(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := findOption(e.options, name)
	if !ok {
		return "", false
	}
	return o.Value(), true
}

// SetOption changes an option. It fails while a search is running.
func (e *Engine) SetOption(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searchingLocked() {
		return ErrSearching
	}
	o, ok := findOption(e.options, name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownOption)
	}
	if err := o.set(value); err != nil {
		return err
	}
	log.Debug().Str("name", o.Name).Str("value", o.Value()).Msg("option-set")
	return nil
}

// SetSearchConfig selects the pruning profile for later searches.
func (e *Engine) SetSearchConfig(cfg SearchConfig) {
	e.mu.Lock()
	e.config = cfg
	e.mu.Unlock()
}

func (e *Engine) resizeHash() error {
	got := e.shared.tt.Resize(e.settings.HashMB)
	if got != e.settings.HashMB {
		log.Warn().Int("requested", e.settings.HashMB).Int("allocated", got).Msg("hash-size-reduced")
	}
	return nil
}

func (e *Engine) applyTimeParams() error {
	p := e.shared.tm.Params()
	p.Overhead = time.Duration(e.settings.NetworkDelay) * time.Millisecond
	p.SlowMover = e.settings.SlowMover
	e.shared.tm.SetParams(p)
	return nil
}

// loadEvaluator installs the evaluator the options ask for.
func (e *Engine) loadEvaluator() error {
	var inner Evaluator = MaterialEvaluator{}
	if e.settings.UseNNUE {
		if e.settings.EvalFile == "" {
			log.Warn().Msg("network-random-weights")
		}
		ev, err := NewNNUEEvaluator(e.settings.EvalFile)
		if err != nil {
			return err
		}
		inner = ev
	}
	e.evalCache.Clear()
	e.shared.eval = NewCachedEvaluator(inner, e.evalCache)
	log.Info().Bool("nnue", e.settings.UseNNUE).Str("file", e.settings.EvalFile).Msg("evaluator-ready")
	return nil
}

// SetPosition sets the root position from "startpos" or an SFEN string,
// followed by moves in USI notation.
func (e *Engine) SetPosition(sfen string, moves []string) error {
	if sfen == "" || sfen == "startpos" {
		sfen = board.StartSFEN
	}
	pos, err := board.ParseSFEN(sfen)
	if err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	for _, s := range moves {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return fmt.Errorf("set position: %w", err)
		}
		pos.MakeMove(m)
	}

	e.mu.Lock()
	e.pos = pos
	e.mu.Unlock()
	return nil
}

// Position returns a copy of the root position.
func (e *Engine) Position() *board.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos.Copy()
}

func (e *Engine) searchingLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Searching reports whether a search is running.
func (e *Engine) Searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchingLocked()
}

// clockFor returns the byoyomi clock of the game, creating it on the first
// byoyomi search. Other controls have no clock.
func (e *Engine) clockFor(tc TimeControl) *ByoyomiClock {
	if tc.Kind == Ponder && tc.Inner != nil {
		tc = *tc.Inner
	}
	if tc.Kind != Byoyomi {
		return nil
	}
	if e.clock == nil {
		e.clock = NewByoyomiClock(tc.Period, e.settings.ByoyomiPeriods)
		if tc.Remaining <= 0 {
			e.clock.StartInByoyomi()
		}
	}
	return e.clock
}

// pollMaskFor polls more often under small node budgets so they are honoured closely.
func pollMaskFor(tc TimeControl) uint64 {
	if tc.Kind == Ponder && tc.Inner != nil {
		tc = *tc.Inner
	}
	if tc.Kind == FixedNodes && tc.Nodes < 64*(defaultPollMask+1) {
		return 63
	}
	return defaultPollMask
}

// Go starts a search of the root position. Updates arrive on the returned
// channel, which is closed after the final update. Only one search may run.
//
// Every completed depth is reported. The caller must drain the channel until
// the final update: a progress update waits for room in the channel and is
// dropped only once ctx is done or Stop was called.
func (e *Engine) Go(ctx context.Context, limits SearchLimits) (<-chan SearchUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.searchingLocked() {
		return nil, ErrSearching
	}

	root := e.pos.Copy()
	allowed := make([]board.Move, 0, len(limits.SearchMoves))
	for _, s := range limits.SearchMoves {
		m, err := board.ParseMove(s, root)
		if err != nil {
			return nil, fmt.Errorf("searchmoves: %w", err)
		}
		allowed = append(allowed, m)
	}
	allowed = lo.Uniq(allowed)

	s := e.settings
	maxDepth := maxSearchDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxSearchDepth)
	}
	multiPV := s.MultiPV
	if s.Skill < MaxSkillLevel {
		multiPV = max(multiPV, skillMinPV)
		maxDepth = min(maxDepth, skillDepth(s.Skill))
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	wake := make(chan struct{})
	updates := make(chan SearchUpdate, updateBuffer)
	e.cancel, e.done, e.wake, e.woken = cancel, done, wake, false

	tm := e.shared.tm
	tm.Start(limits.Control, root.SideToMove, root.MoveNumber-1, e.clockFor(limits.Control))

	req := searchRequest{
		pos:      root,
		maxDepth: maxDepth,
		multiPV:  multiPV,
		skill:    s.Skill,
		allowed:  allowed,
		config:   e.config,
		pollMask: pollMaskFor(limits.Control),
		wake:     wake,
		report: func(u SearchUpdate) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		},
	}

	log.Info().
		Str("control", limits.Control.Kind.String()).
		Int("depth", maxDepth).
		Int("threads", len(e.coord.workers)).
		Dur("soft", tm.SoftLimit()).
		Dur("hard", tm.HardLimit()).
		Msg("search-start")

	go func() {
		defer close(done)
		defer close(updates)
		defer cancel()

		if tm.Forfeited() {
			log.Warn().Msg("search-forfeited")
			updates <- SearchUpdate{Final: true, Forfeited: true}
			return
		}

		res := e.coord.run(ctx, req)
		final := SearchUpdate{
			Final:      true,
			BestMove:   res.best,
			PonderMove: res.ponder,
			Nodes:      res.nodes,
			Time:       tm.Elapsed(),
			HashFull:   e.shared.tt.HashFull(),
		}
		if len(res.lines) > 0 {
			best := res.lines[0]
			final.Depth, final.SelDepth, final.Score = best.Depth, best.SelDepth, best.Score
		}
		e.coord.age()
		updates <- final
		log.Info().Str("bestmove", res.best.String()).Uint64("nodes", res.nodes).Dur("time", final.Time).Msg("search-done")
	}()

	return updates, nil
}

// Stop ends the running search; its final update still arrives.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until the running search, if any, has finished.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// PonderHit tells a pondering search that the expected move was played.
// The search continues under the real time control.
func (e *Engine) PonderHit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.searchingLocked() || !e.shared.tm.Pondering() {
		return
	}
	e.shared.tm.PonderHit(nil)
	if !e.woken {
		close(e.wake)
		e.woken = true
	}
	log.Debug().Dur("elapsed", e.shared.tm.Elapsed()).Dur("hard", e.shared.tm.HardLimit()).Msg("ponder-hit")
}

// FinishMove books the time the engine spent on its last move against the
// byoyomi clock. It returns ErrTimeForfeit once the periods are exhausted.
func (e *Engine) FinishMove(spent time.Duration, state TimeState) error {
	e.mu.Lock()
	clock := e.clock
	e.mu.Unlock()
	if clock == nil {
		return nil
	}
	err := clock.Update(spent, state)
	if errors.Is(err, ErrTimeForfeit) {
		log.Warn().Dur("spent", spent).Str("phase", state.Phase.String()).Msg("time-forfeit")
	}
	return err
}

// NewGame clears the transposition table, histories and clock. A running
// search is stopped first.
func (e *Engine) NewGame() {
	e.Stop()
	e.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.shared.tt.Clear()
	e.shared.history.Clear()
	e.coord.clear()
	e.evalCache.Clear()
	e.clock = nil
	e.pos = board.NewPosition()
}

// Perft counts the leaf nodes of the root position at depth.
func (e *Engine) Perft(depth int) uint64 {
	return e.Position().Perft(depth)
}

// Divide returns the perft count below each root move.
func (e *Engine) Divide(depth int) map[board.Move]uint64 {
	return e.Position().Divide(depth)
}

// Evaluate returns the static evaluation of the root position.
func (e *Engine) Evaluate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shared.eval.Evaluate(e.pos)
}
