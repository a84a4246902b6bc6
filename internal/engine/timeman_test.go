package engine

import (
	"testing"
	"time"

	"github.com/hailam/shogiplay/internal/board"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time            { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestManager() (*TimeManager, *fakeClock) {
	fc := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tm := NewTimeManager(DefaultTimeParams)
	tm.now = fc.now
	return tm, fc
}

func TestAllocation(t *testing.T) {
	tests := []struct {
		name       string
		tc         TimeControl
		ply        int
		soft, hard time.Duration
	}{
		{"fixed", FixedTimeControl(time.Second), 0, 890 * ms, 990 * ms},
		{"fischer critical", FischerControl(400*ms, 0, 0), 0, 50 * ms, 100 * ms},
		{"fischer opening", FischerControl(60*time.Second, time.Second, 0), 0, 1750 * ms, 8950 * ms},
		{"fischer moves to go", FischerControl(10*time.Second, 0, 10), 0, 950 * ms, 4950 * ms},
		{"byoyomi main", ByoyomiControl(10*time.Second, time.Second), 0, 2 * time.Second, 5 * time.Second},
		{"byoyomi final push", ByoyomiControl(time.Second, time.Second), 0, 1900 * ms, 1950 * ms},
		{"byoyomi periods", ByoyomiControl(0, time.Second), 0, 750 * ms, 950 * ms},
		{"nodes", NodesControl(1000), 0, 0, 0},
		{"infinite", InfiniteControl(), 0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tm, _ := newTestManager()
			tm.Start(tc.tc, board.Black, tc.ply, nil)
			if got := tm.SoftLimit(); got != tc.soft {
				t.Errorf("soft = %v, want %v", got, tc.soft)
			}
			if got := tm.HardLimit(); got != tc.hard {
				t.Errorf("hard = %v, want %v", got, tc.hard)
			}
			if tm.SoftLimit() > tm.HardLimit() {
				t.Errorf("soft %v above hard %v", tm.SoftLimit(), tm.HardLimit())
			}
		})
	}
}

func TestByoyomiAllocationUsesCurrentPeriod(t *testing.T) {
	clock := NewByoyomiClock(time.Second, 3)
	if err := clock.Update(1500*ms, MainState(0)); err != nil {
		t.Fatal(err)
	}
	if clock.Current() != 500*ms {
		t.Fatalf("current = %v", clock.Current())
	}

	tm, _ := newTestManager()
	tm.Start(ByoyomiControl(0, time.Second), board.White, 40, clock)
	if got := tm.HardLimit(); got != 450*ms {
		t.Errorf("hard = %v, want 450ms", got)
	}
	if got := tm.SoftLimit(); got != 350*ms {
		t.Errorf("soft = %v, want 350ms", got)
	}
}

func TestDeadlines(t *testing.T) {
	tm, fc := newTestManager()
	tm.Start(FixedTimeControl(time.Second), board.Black, 0, nil)

	fc.advance(500 * ms)
	if tm.SoftExpired() || tm.ShouldStop(0) {
		t.Fatal("stopped too early")
	}
	fc.advance(400 * ms) // 900ms: past soft, before hard
	if !tm.SoftExpired() {
		t.Error("soft deadline should have passed")
	}
	fc.advance(100 * ms)
	if !tm.ShouldStop(0) {
		t.Error("hard deadline should have passed")
	}
	if tm.State() != ManagerHardStopped {
		t.Errorf("state = %v", tm.State())
	}
}

func TestNodeBudget(t *testing.T) {
	tm, _ := newTestManager()
	tm.Start(NodesControl(1000), board.Black, 0, nil)
	if tm.ShouldStop(999) {
		t.Fatal("stopped below the budget")
	}
	if !tm.ShouldStop(1000) {
		t.Fatal("budget reached but not stopped")
	}
}

func TestPonderHitContinuity(t *testing.T) {
	tm, fc := newTestManager()
	tm.Start(PonderControl(FixedTimeControl(time.Second)), board.Black, 0, nil)

	fc.advance(10 * time.Second)
	if tm.ShouldStop(0) || tm.SoftExpired() {
		t.Fatal("deadlines must be suppressed while pondering")
	}
	if !tm.Unbounded() {
		t.Error("pondering search is unbounded")
	}

	tm, fc = newTestManager()
	tm.Start(PonderControl(FixedTimeControl(time.Second)), board.Black, 0, nil)
	fc.advance(300 * ms)
	tm.PonderHit(nil)

	if tm.State() != ManagerRunning {
		t.Fatalf("state after ponderhit = %v", tm.State())
	}
	if got := tm.Elapsed(); got != 300*ms {
		t.Errorf("ponder time not counted: elapsed %v", got)
	}
	if tm.HardLimit() != 990*ms {
		t.Errorf("hard = %v, want 990ms from the original start", tm.HardLimit())
	}
	fc.advance(700 * ms)
	if !tm.ShouldStop(0) {
		t.Error("hard deadline measured from the ponder start should have passed")
	}
}

func TestPonderHitMinimumWindow(t *testing.T) {
	tm, fc := newTestManager()
	tm.Start(PonderControl(FixedTimeControl(200*ms)), board.Black, 0, nil)
	fc.advance(2 * time.Second)
	tm.PonderHit(nil)

	p := DefaultTimeParams
	elapsed := 2 * time.Second
	if tm.HardLimit() < elapsed+p.PonderHardMin {
		t.Errorf("hard %v leaves less than %v", tm.HardLimit(), p.PonderHardMin)
	}
	if tm.SoftLimit() < elapsed+p.PonderSoftMin {
		t.Errorf("soft %v leaves less than %v", tm.SoftLimit(), p.PonderSoftMin)
	}
	if tm.SoftLimit() > tm.HardLimit()-p.PonderGap {
		t.Errorf("soft %v too close to hard %v", tm.SoftLimit(), tm.HardLimit())
	}
	if tm.ShouldStop(0) {
		t.Error("stopped right after ponderhit")
	}
	fc.advance(p.PonderHardMin)
	if !tm.ShouldStop(0) {
		t.Error("window did not close")
	}
}

func TestPonderHitWindowSurvivesStability(t *testing.T) {
	tm, fc := newTestManager()
	tm.Start(PonderControl(FixedTimeControl(200*ms)), board.Black, 0, nil)
	fc.advance(2 * time.Second)
	tm.PonderHit(nil)

	p := DefaultTimeParams
	floor := 2*time.Second + p.PonderSoftMin
	tm.AdjustForStability(6, 0)
	if got := tm.SoftLimit(); got < floor {
		t.Errorf("stable soft after ponderhit = %v, want at least %v", got, floor)
	}
	if tm.SoftExpired() {
		t.Error("soft limit expired right after ponderhit")
	}
	fc.advance(p.PonderSoftMin)
	if !tm.SoftExpired() {
		t.Error("soft window did not close")
	}

	// A fresh search drops the floor again.
	tm.Start(FixedTimeControl(time.Second), board.Black, 0, nil)
	base := tm.SoftLimit()
	tm.AdjustForStability(6, 0)
	if got := tm.SoftLimit(); got != base/2 {
		t.Errorf("soft after restart = %v, want %v", got, base/2)
	}
}

func TestPonderHitWithoutInnerControl(t *testing.T) {
	tm, _ := newTestManager()
	tm.Start(TimeControl{Kind: Ponder}, board.Black, 0, nil)
	tm.PonderHit(nil)
	if tm.HardLimit() != 0 || tm.SoftLimit() != 0 {
		t.Errorf("an infinite inner control has no limits, got %v/%v", tm.SoftLimit(), tm.HardLimit())
	}
	if !tm.Unbounded() {
		t.Error("infinite control after ponderhit is still unbounded")
	}
}

func TestForfeitedClockStopsAtOnce(t *testing.T) {
	clock := NewByoyomiClock(time.Second, 1)
	clock.StartInByoyomi()
	_ = clock.Update(time.Second, ByoyomiState())

	tm, _ := newTestManager()
	tm.Start(ByoyomiControl(0, time.Second), board.Black, 0, clock)
	if !tm.Forfeited() || !tm.ShouldStop(0) {
		t.Error("a forfeited clock must stop the search")
	}
}

func TestAdjustForStability(t *testing.T) {
	tm, _ := newTestManager()
	tm.Start(FixedTimeControl(time.Second), board.Black, 0, nil)
	base := tm.SoftLimit()

	tm.AdjustForStability(6, 0)
	if got := tm.SoftLimit(); got != base/2 {
		t.Errorf("stable soft = %v, want %v", got, base/2)
	}
	tm.AdjustForStability(0, 4)
	if got := tm.SoftLimit(); got != tm.HardLimit() {
		t.Errorf("unstable soft = %v, want capped at hard %v", got, tm.HardLimit())
	}
	tm.AdjustForStability(0, 0)
	if got := tm.SoftLimit(); got != base {
		t.Errorf("adjustments must not compound: %v, want %v", got, base)
	}
}
