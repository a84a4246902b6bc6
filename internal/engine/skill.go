package engine

import "lukechampine.com/frand"

// Skill levels run from 0 (weakest) to MaxSkillLevel (full strength).
const (
	MaxSkillLevel = 20

	// skillMinPV is the number of root lines searched when weakened.
	skillMinPV = 4
)

// skillDepth limits the search depth of a weakened engine.
func skillDepth(level int) int {
	return 1 + level
}

// pickSkillLine chooses which of the sorted root lines a weakened engine
// plays. Every line gets a push that grows with its distance from the best
// score plus a random part, so weaker levels drift to worse moves more often.
func pickSkillLine(lines []RootLine, level int) int {
	if level >= MaxSkillLevel || len(lines) < 2 {
		return 0
	}
	top := lines[0].Score
	delta := min(top-lines[len(lines)-1].Score, 90)
	weakness := 120 - 2*level

	best, bestValue := 0, -2*Infinity
	for i, l := range lines {
		push := (weakness*(top-l.Score) + delta*frand.Intn(weakness)) / 128
		if v := l.Score + push; v > bestValue {
			best, bestValue = i, v
		}
	}
	return best
}
