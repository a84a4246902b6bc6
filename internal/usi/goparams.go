package usi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hailam/shogiplay/internal/board"
	"github.com/hailam/shogiplay/internal/engine"
)

// goParams holds the parsed arguments of a go command.
type goParams struct {
	ponder   bool
	infinite bool

	btime, wtime time.Duration
	binc, winc   time.Duration
	byoyomi      time.Duration
	movetime     time.Duration
	movesToGo    int

	depth       int
	nodes       uint64
	searchMoves []string
}

// parseGo parses "go" arguments. searchmoves takes every remaining token.
func parseGo(args []string) (goParams, error) {
	var p goParams
	for i := 0; i < len(args); i++ {
		key := args[i]
		switch key {
		case "ponder":
			p.ponder = true
			continue
		case "infinite":
			p.infinite = true
			continue
		case "searchmoves":
			p.searchMoves = append(p.searchMoves, args[i+1:]...)
			return p, nil
		}

		if i+1 >= len(args) {
			return p, fmt.Errorf("go %s: missing value", key)
		}
		i++
		val := args[i]
		var err error
		switch key {
		case "btime":
			p.btime, err = parseMillis(val)
		case "wtime":
			p.wtime, err = parseMillis(val)
		case "binc":
			p.binc, err = parseMillis(val)
		case "winc":
			p.winc, err = parseMillis(val)
		case "byoyomi":
			p.byoyomi, err = parseMillis(val)
		case "movetime":
			p.movetime, err = parseMillis(val)
		case "movestogo":
			p.movesToGo, err = strconv.Atoi(val)
		case "depth":
			p.depth, err = strconv.Atoi(val)
		case "nodes":
			p.nodes, err = strconv.ParseUint(val, 10, 64)
		case "mate":
			// mate search is not supported; treat as an infinite search
			p.infinite = true
		default:
			return p, fmt.Errorf("go: unknown parameter %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("go %s %q: %w", key, val, err)
		}
	}
	return p, nil
}

func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	// Some hosts send negative remaining time once the main time is gone.
	return time.Duration(max(ms, 0)) * time.Millisecond, nil
}

// clock returns the main time and increment of side.
func (p goParams) clock(side board.Color) (remaining, inc time.Duration) {
	if side == board.White {
		return p.wtime, p.winc
	}
	return p.btime, p.binc
}

// hasClock reports whether any clock information was sent.
func (p goParams) hasClock() bool {
	return p.btime > 0 || p.wtime > 0 || p.binc > 0 || p.winc > 0 || p.byoyomi > 0
}

// control converts the parameters into the engine's time control.
func (p goParams) control(side board.Color) engine.TimeControl {
	var tc engine.TimeControl
	remaining, inc := p.clock(side)
	switch {
	case p.infinite:
		tc = engine.InfiniteControl()
	case p.nodes > 0:
		tc = engine.NodesControl(p.nodes)
	case p.movetime > 0:
		tc = engine.FixedTimeControl(p.movetime)
	case p.byoyomi > 0:
		tc = engine.ByoyomiControl(remaining, p.byoyomi)
	case p.hasClock():
		tc = engine.FischerControl(remaining, inc, p.movesToGo)
	case p.depth > 0:
		// a depth-only search has no node budget
		tc = engine.NodesControl(0)
	default:
		tc = engine.InfiniteControl()
	}
	if p.ponder {
		tc = engine.PonderControl(tc)
	}
	return tc
}

// limits builds the engine request for side to move.
func (p goParams) limits(side board.Color) engine.SearchLimits {
	return engine.SearchLimits{
		Control:     p.control(side),
		Depth:       p.depth,
		SearchMoves: p.searchMoves,
	}
}

// timeState reports the clock phase a finished move was played in. It is
// only meaningful for byoyomi games.
func (p goParams) timeState(side board.Color) engine.TimeState {
	if p.byoyomi <= 0 {
		return engine.NonByoyomiState()
	}
	if remaining, _ := p.clock(side); remaining > 0 {
		return engine.MainState(remaining)
	}
	return engine.ByoyomiState()
}
