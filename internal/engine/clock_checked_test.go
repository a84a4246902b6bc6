//go:build checked

package engine

import (
	"strings"
	"testing"
)

func TestNonByoyomiStatePanics(t *testing.T) {
	defer func() {
		r := recover()
		msg, _ := r.(string)
		if !strings.Contains(msg, "NonByoyomi") {
			t.Fatalf("expected a NonByoyomi panic, got %v", r)
		}
	}()
	c := NewByoyomiClock(1000*ms, 3)
	_ = c.Update(2000*ms, NonByoyomiState())
}
