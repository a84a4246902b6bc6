package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeForfeit is returned once every byoyomi period has been used up.
var ErrTimeForfeit = errors.New("time forfeit: byoyomi periods exhausted")

// TimePhase tags which part of a byoyomi clock is running.
type TimePhase uint8

const (
	// PhaseMain is main time, with TimeState.MainLeft still on the clock.
	PhaseMain TimePhase = iota
	// PhaseByoyomi means main time is gone and moves are played in periods.
	PhaseByoyomi
	// PhaseNonByoyomi is for controls without periods (Fischer, fixed time).
	PhaseNonByoyomi
)

func (p TimePhase) String() string {
	switch p {
	case PhaseMain:
		return "main"
	case PhaseByoyomi:
		return "byoyomi"
	case PhaseNonByoyomi:
		return "non-byoyomi"
	}
	return fmt.Sprintf("TimePhase(%d)", uint8(p))
}

// TimeState is reported by the caller after every completed move. The main
// phase carries the main time left so a move that runs into the periods is
// never mistaken for one that stayed in main time.
type TimeState struct {
	Phase    TimePhase
	MainLeft time.Duration
}

// MainState reports main time with left remaining before the move.
func MainState(left time.Duration) TimeState {
	return TimeState{Phase: PhaseMain, MainLeft: left}
}

// ByoyomiState reports a move played inside the periods.
func ByoyomiState() TimeState {
	return TimeState{Phase: PhaseByoyomi}
}

// NonByoyomiState reports a move under a control without periods.
func NonByoyomiState() TimeState {
	return TimeState{Phase: PhaseNonByoyomi}
}

// ByoyomiClock tracks period consumption across the moves of one game.
type ByoyomiClock struct {
	mu          sync.Mutex
	period      time.Duration
	periodsLeft int
	current     time.Duration // time left in the running period, 0 while in main time
	inByoyomi   bool
	forfeited   bool
}

// NewByoyomiClock creates a clock with periods of the given length. A clock
// that starts without main time should be told so with StartInByoyomi.
func NewByoyomiClock(period time.Duration, periods int) *ByoyomiClock {
	return &ByoyomiClock{
		period:      period,
		periodsLeft: max(periods, 1),
	}
}

// StartInByoyomi marks a clock whose main time is zero from the start.
func (c *ByoyomiClock) StartInByoyomi() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inByoyomi = true
	c.current = c.period
}

// Update books the time spent on a completed move. It returns ErrTimeForfeit
// when the move exhausted the last period.
func (c *ByoyomiClock) Update(spent time.Duration, state TimeState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.forfeited {
		return ErrTimeForfeit
	}

	switch state.Phase {
	case PhaseNonByoyomi:
		if checkedBuild {
			panic("engine: NonByoyomi time state used with a byoyomi control")
		}
		return nil

	case PhaseMain:
		if spent <= state.MainLeft {
			return nil
		}
		c.inByoyomi = true
		c.consume(spent-state.MainLeft, true)

	case PhaseByoyomi:
		c.inByoyomi = true
		c.consume(spent, false)
	}

	if c.forfeited {
		return ErrTimeForfeit
	}
	return nil
}

// consume books spent against the periods. Time that spills over from main
// time keeps its remainder in the running period; inside byoyomi a move that
// fits in its period starts the next one afresh.
func (c *ByoyomiClock) consume(spent time.Duration, fromMain bool) {
	if c.period <= 0 {
		c.forfeit()
		return
	}
	consumed := int(spent / c.period)
	rem := spent % c.period

	c.periodsLeft -= consumed
	if c.periodsLeft <= 0 {
		c.forfeit()
		return
	}
	switch {
	case rem == 0, consumed == 0 && !fromMain:
		c.current = c.period
	default:
		c.current = c.period - rem
	}
}

func (c *ByoyomiClock) forfeit() {
	c.periodsLeft = 0
	c.current = 0
	c.forfeited = true
}

// PeriodsLeft returns the number of unused periods.
func (c *ByoyomiClock) PeriodsLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.periodsLeft
}

// Current returns the time left in the running period.
func (c *ByoyomiClock) Current() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// InByoyomi reports whether main time has run out.
func (c *ByoyomiClock) InByoyomi() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inByoyomi
}

// Forfeited reports whether the periods are exhausted.
func (c *ByoyomiClock) Forfeited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forfeited
}
