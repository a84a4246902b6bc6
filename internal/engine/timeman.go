package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hailam/shogiplay/internal/board"
)

// TimeControlKind selects how a search is limited.
type TimeControlKind uint8

const (
	FixedTime TimeControlKind = iota
	Fischer
	Byoyomi
	FixedNodes
	Infinite
	Ponder
)

func (k TimeControlKind) String() string {
	switch k {
	case FixedTime:
		return "fixed-time"
	case Fischer:
		return "fischer"
	case Byoyomi:
		return "byoyomi"
	case FixedNodes:
		return "fixed-nodes"
	case Infinite:
		return "infinite"
	case Ponder:
		return "ponder"
	}
	return fmt.Sprintf("TimeControlKind(%d)", uint8(k))
}

// TimeControl describes the clock of one go request. Only the fields of
// its Kind are meaningful.
type TimeControl struct {
	Kind TimeControlKind

	MoveTime  time.Duration // FixedTime
	Remaining time.Duration // Fischer and Byoyomi: main time left for the side to move
	Increment time.Duration // Fischer
	MovesToGo int           // Fischer, 0 for sudden death
	Period    time.Duration // Byoyomi
	Nodes     uint64        // FixedNodes
	Inner     *TimeControl  // Ponder: the control that applies after ponderhit
}

// FixedTimeControl searches for d per move.
func FixedTimeControl(d time.Duration) TimeControl {
	return TimeControl{Kind: FixedTime, MoveTime: d}
}

// FischerControl is remaining time plus an increment per move.
func FischerControl(remaining, inc time.Duration, movesToGo int) TimeControl {
	return TimeControl{Kind: Fischer, Remaining: remaining, Increment: inc, MovesToGo: movesToGo}
}

// ByoyomiControl is main time followed by periods of the given length.
func ByoyomiControl(main, period time.Duration) TimeControl {
	return TimeControl{Kind: Byoyomi, Remaining: main, Period: period}
}

// NodesControl stops after n nodes.
func NodesControl(n uint64) TimeControl {
	return TimeControl{Kind: FixedNodes, Nodes: n}
}

// InfiniteControl searches until stopped.
func InfiniteControl() TimeControl {
	return TimeControl{Kind: Infinite}
}

// PonderControl searches without deadlines until ponderhit, then applies inner.
func PonderControl(inner TimeControl) TimeControl {
	return TimeControl{Kind: Ponder, Inner: &inner}
}

// TimeParams tunes the allocation.
type TimeParams struct {
	Overhead         time.Duration // network and GUI latency reserved on every move
	SlowMover        int           // percent applied to the soft limit
	CriticalFischer  time.Duration // below this without increment, move at once
	ByoyomiSoftRatio float64
	PonderSoftMin    time.Duration // minimum window after ponderhit
	PonderHardMin    time.Duration
	PonderGap        time.Duration // soft stays this far below hard
}

// DefaultTimeParams are the values used by the engine unless overridden by options.
var DefaultTimeParams = TimeParams{
	Overhead:         50 * time.Millisecond,
	SlowMover:        100,
	CriticalFischer:  500 * time.Millisecond,
	ByoyomiSoftRatio: 0.8,
	PonderSoftMin:    100 * time.Millisecond,
	PonderHardMin:    200 * time.Millisecond,
	PonderGap:        50 * time.Millisecond,
}

// ManagerState is the lifecycle of a TimeManager.
type ManagerState uint32

const (
	ManagerCreated ManagerState = iota
	ManagerRunning
	ManagerPondering
	ManagerSoftStopped
	ManagerHardStopped
	ManagerForfeited
)

func (s ManagerState) String() string {
	return [...]string{"created", "running", "pondering", "soft-stopped", "hard-stopped", "forfeited"}[s]
}

// TimeManager turns a TimeControl into soft and hard deadlines.
// The soft deadline is checked between iterations, the hard one inside the
// node loop. Deadlines are durations from the start of the search; zero means
// no limit. All methods are safe for concurrent use.
type TimeManager struct {
	params TimeParams
	now    func() time.Time

	mu      sync.Mutex
	control TimeControl
	us      board.Color
	ply     int
	clock   *ByoyomiClock
	start   time.Time

	soft      atomic.Int64
	baseSoft  atomic.Int64
	minSoft   atomic.Int64 // floor kept after a ponder hit
	hard      atomic.Int64
	nodeLimit atomic.Uint64
	state     atomic.Uint32
}

// NewTimeManager creates a time manager.
func NewTimeManager(params TimeParams) *TimeManager {
	return &TimeManager{params: params, now: time.Now}
}

// Params returns the allocation parameters.
func (tm *TimeManager) Params() TimeParams {
	return tm.params
}

// SetParams replaces the allocation parameters for the next search.
func (tm *TimeManager) SetParams(p TimeParams) {
	tm.mu.Lock()
	tm.params = p
	tm.mu.Unlock()
}

// Start begins timing a search. clock may be nil for controls without periods.
func (tm *TimeManager) Start(tc TimeControl, us board.Color, ply int, clock *ByoyomiClock) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.control = tc
	tm.us = us
	tm.ply = ply
	tm.clock = clock
	tm.start = tm.now()
	tm.nodeLimit.Store(0)

	if clock != nil && clock.Forfeited() {
		tm.soft.Store(0)
		tm.hard.Store(0)
		tm.setState(ManagerForfeited)
		return
	}

	if tc.Kind == Ponder {
		tm.soft.Store(0)
		tm.hard.Store(0)
		tm.setState(ManagerPondering)
		return
	}
	tm.apply(tc)
	tm.setState(ManagerRunning)
}

// apply installs the allocation for tc.
func (tm *TimeManager) apply(tc TimeControl) {
	soft, hard := tm.allocate(tc)
	tm.soft.Store(int64(soft))
	tm.baseSoft.Store(int64(soft))
	tm.minSoft.Store(0)
	tm.hard.Store(int64(hard))
	if tc.Kind == FixedNodes {
		tm.nodeLimit.Store(tc.Nodes)
	}
}

// allocate returns (soft, hard) for tc; zero means unlimited.
func (tm *TimeManager) allocate(tc TimeControl) (soft, hard time.Duration) {
	p := tm.params
	switch tc.Kind {
	case FixedTime:
		overhead := min(p.Overhead, 10*time.Millisecond)
		soft = tc.MoveTime * 9 / 10 * time.Duration(p.SlowMover) / 100
		hard = tc.MoveTime
		return max(soft-overhead, time.Millisecond), max(hard-overhead, time.Millisecond)

	case Fischer:
		return tm.allocateFischer(tc)

	case Byoyomi:
		return tm.allocateByoyomi(tc)
	}
	return 0, 0
}

// movesRemaining estimates how many more moves the side to move will play.
func movesRemaining(ply int) int {
	played := ply / 2
	switch {
	case played < 30:
		return 60
	case played < 80:
		return 40
	}
	return 20
}

func (tm *TimeManager) allocateFischer(tc TimeControl) (time.Duration, time.Duration) {
	p := tm.params
	remain, inc := tc.Remaining, tc.Increment
	if remain < p.CriticalFischer && inc == 0 {
		return 50 * time.Millisecond, 100 * time.Millisecond
	}

	movesLeft := tc.MovesToGo
	if movesLeft <= 0 {
		movesLeft = movesRemaining(tm.ply)
	}
	base := remain/time.Duration(movesLeft) + inc*8/10
	soft := base * time.Duration(p.SlowMover) / 100
	hard := min(soft*5, remain*8/10)

	soft = max(soft-p.Overhead, 10*time.Millisecond)
	hard = max(hard-p.Overhead, 20*time.Millisecond)
	return min(soft, hard), hard
}

func (tm *TimeManager) allocateByoyomi(tc TimeControl) (time.Duration, time.Duration) {
	p := tm.params
	period := tc.Period
	if tm.clock != nil && tm.clock.InByoyomi() {
		if cur := tm.clock.Current(); cur > 0 && cur < period {
			period = cur
		}
	}
	main := tc.Remaining

	if main > 0 {
		if period > 0 && main < period*12/10 {
			// Final push: spend what is left of main time and the first period.
			target := max(main+period-p.Overhead, 50*time.Millisecond)
			return max(target-50*time.Millisecond, 10*time.Millisecond), target
		}
		soft := main / 5 * time.Duration(p.SlowMover) / 100
		hard := main / 2
		return min(soft, hard), hard
	}

	soft := time.Duration(float64(period)*p.ByoyomiSoftRatio) - p.Overhead
	soft = soft * time.Duration(p.SlowMover) / 100
	hard := period - p.Overhead
	hard = max(hard, 20*time.Millisecond)
	soft = clamp(soft, 10*time.Millisecond, hard)
	return soft, hard
}

// PonderHit turns a ponder search into a timed one. tc replaces the inner
// control of the ponder request when non-nil. Time already spent pondering
// counts against the allocation, but the search always keeps a short window.
func (tm *TimeManager) PonderHit(tc *TimeControl) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.State() != ManagerPondering {
		return
	}
	control := InfiniteControl()
	switch {
	case tc != nil:
		control = *tc
	case tm.control.Inner != nil:
		control = *tm.control.Inner
	}
	tm.control = control

	soft, hard := tm.allocate(control)
	if control.Kind == FixedNodes {
		tm.nodeLimit.Store(control.Nodes)
	}
	var floor time.Duration
	if soft > 0 || hard > 0 {
		elapsed := tm.now().Sub(tm.start)
		hard = max(hard, elapsed+tm.params.PonderHardMin)
		floor = min(elapsed+tm.params.PonderSoftMin, hard-tm.params.PonderGap)
		soft = max(soft, elapsed+tm.params.PonderSoftMin)
		soft = min(soft, hard-tm.params.PonderGap)
	}
	tm.soft.Store(int64(soft))
	tm.baseSoft.Store(int64(soft))
	tm.minSoft.Store(int64(floor))
	tm.hard.Store(int64(hard))
	tm.setState(ManagerRunning)
}

// Elapsed returns the time since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	tm.mu.Lock()
	start := tm.start
	tm.mu.Unlock()
	return tm.now().Sub(start)
}

// SoftLimit returns the soft deadline measured from the start, 0 if none.
func (tm *TimeManager) SoftLimit() time.Duration {
	return time.Duration(tm.soft.Load())
}

// HardLimit returns the hard deadline measured from the start, 0 if none.
func (tm *TimeManager) HardLimit() time.Duration {
	return time.Duration(tm.hard.Load())
}

// State returns the lifecycle state.
func (tm *TimeManager) State() ManagerState {
	return ManagerState(tm.state.Load())
}

func (tm *TimeManager) setState(s ManagerState) {
	tm.state.Store(uint32(s))
}

// Pondering reports whether deadlines are suspended.
func (tm *TimeManager) Pondering() bool {
	return tm.State() == ManagerPondering
}

// ShouldStop is polled inside the search. It reports the node budget, the
// hard deadline and a forfeited clock; deadlines are ignored while pondering.
func (tm *TimeManager) ShouldStop(nodes uint64) bool {
	switch tm.State() {
	case ManagerHardStopped, ManagerForfeited:
		return true
	case ManagerPondering:
		return false
	}
	if limit := tm.nodeLimit.Load(); limit > 0 && nodes >= limit {
		tm.setState(ManagerHardStopped)
		return true
	}
	if hard := tm.HardLimit(); hard > 0 && tm.Elapsed() >= hard {
		tm.setState(ManagerHardStopped)
		return true
	}
	return false
}

// SoftExpired is checked after each completed iteration.
func (tm *TimeManager) SoftExpired() bool {
	switch tm.State() {
	case ManagerSoftStopped, ManagerHardStopped, ManagerForfeited:
		return true
	case ManagerPondering:
		return false
	}
	if soft := tm.SoftLimit(); soft > 0 && tm.Elapsed() >= soft {
		tm.setState(ManagerSoftStopped)
		return true
	}
	return false
}

// ForceStop makes the next poll stop the search.
func (tm *TimeManager) ForceStop() {
	tm.setState(ManagerHardStopped)
}

// Forfeited reports whether the game was lost on time.
func (tm *TimeManager) Forfeited() bool {
	return tm.State() == ManagerForfeited
}

// AdjustForStability rescales the soft limit from its allocated value. A best
// move that held for several depths shortens it; one that keeps changing
// lengthens it, never past the hard limit nor below the window promised
// after a ponder hit.
func (tm *TimeManager) AdjustForStability(stability, changes int) {
	base, hard := time.Duration(tm.baseSoft.Load()), tm.HardLimit()
	if base == 0 || tm.Pondering() {
		return
	}
	pct := time.Duration(100)
	switch {
	case stability >= 6:
		pct = 50
	case stability >= 4:
		pct = 70
	case stability >= 2:
		pct = 85
	}
	switch {
	case changes >= 4:
		pct *= 2
	case changes >= 2:
		pct = pct * 3 / 2
	}
	soft := max(base*pct/100, time.Duration(tm.minSoft.Load()))
	if hard > 0 {
		soft = min(soft, hard)
	}
	tm.soft.Store(int64(soft))
}

// Unbounded reports whether the search must wait for an explicit stop
// before reporting its move: while pondering or under an infinite control.
func (tm *TimeManager) Unbounded() bool {
	if tm.Pondering() {
		return true
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.control.Kind == Infinite
}
