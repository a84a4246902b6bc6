//go:build !checked

package engine

import "testing"

func TestNonByoyomiStateIgnored(t *testing.T) {
	c := NewByoyomiClock(1000*ms, 3)
	for i := 0; i < 3; i++ {
		if err := c.Update(2000*ms, NonByoyomiState()); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if c.InByoyomi() {
		t.Error("NonByoyomi reports must not move the clock into byoyomi")
	}
	if c.PeriodsLeft() != 3 {
		t.Errorf("periods left = %d, want 3", c.PeriodsLeft())
	}
}
