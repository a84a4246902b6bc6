// Package usi implements the Universal Shogi Interface protocol on top of
// the engine controller.
package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/shogiplay/internal/board"
	"github.com/hailam/shogiplay/internal/engine"
	"github.com/hailam/shogiplay/internal/storage"
)

const (
	engineName   = "ShogiPlay"
	engineAuthor = "ShogiPlay Team"
)

// Store persists option changes and finished games. *storage.Storage implements it.
type Store interface {
	SaveOption(name, value string) error
	SaveGame(rec storage.GameRecord) error
}

// Config wires a Handler to its surroundings.
type Config struct {
	Out    io.Writer
	Store  Store // optional
	Logger zerolog.Logger
}

// Handler implements the USI protocol.
type Handler struct {
	engine *engine.Engine
	store  Store
	log    zerolog.Logger

	outMu sync.Mutex
	out   io.Writer

	// game state, guarded by mu; the reporting goroutine updates it
	mu        sync.Mutex
	sfen      string
	moves     []string
	started   time.Time
	thinking  time.Duration
	forfeited bool
	ponderHit time.Time

	searchDone chan struct{}
}

// New creates a protocol handler.
func New(eng *engine.Engine, cfg Config) *Handler {
	return &Handler{
		engine:  eng,
		store:   cfg.Store,
		log:     cfg.Logger,
		out:     cfg.Out,
		sfen:    "startpos",
		started: time.Now(),
	}
}

// Run reads commands from r until quit, EOF or ctx cancellation.
func (h *Handler) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	defer h.stopSearch()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if h.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute handles one command line. It reports whether the host asked to quit.
func (h *Handler) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]
	h.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("usi-command")

	switch cmd {
	case "usi":
		h.handleUSI()
	case "isready":
		h.println("readyok")
	case "setoption":
		h.handleSetOption(args)
	case "usinewgame":
		h.handleNewGame()
	case "position":
		h.handlePosition(args)
	case "go":
		h.handleGo(ctx, args)
	case "stop":
		h.stopSearch()
	case "ponderhit":
		h.handlePonderHit()
	case "gameover":
		h.handleGameOver(args)
	case "quit":
		h.stopSearch()
		return true
	// Debug commands
	case "d":
		pos := h.engine.Position()
		h.println(pos.String())
		h.println("sfen " + pos.SFEN())
	case "perft":
		h.handlePerft(args)
	case "eval":
		h.printf("info string eval %s\n", engine.ScoreToString(h.engine.Evaluate()))
	default:
		h.log.Warn().Str("cmd", cmd).Msg("usi-unknown-command")
	}
	return false
}

func (h *Handler) println(s string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintln(h.out, s)
}

func (h *Handler) printf(format string, args ...any) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintf(h.out, format, args...)
}

// infoString reports an error to the host without breaking the protocol.
func (h *Handler) infoString(err error) {
	h.printf("info string %v\n", err)
}

// handleUSI responds to the "usi" command.
func (h *Handler) handleUSI() {
	h.println("id name " + engineName)
	h.println("id author " + engineAuthor)
	for _, o := range h.engine.Options() {
		h.println(o.USI())
	}
	h.println("usiok")
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (h *Handler) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	n, v := strings.Join(name, " "), strings.Join(value, " ")
	if n == "" {
		h.infoString(errors.New("setoption: missing name"))
		return
	}

	if err := h.engine.SetOption(n, v); err != nil {
		h.log.Warn().Err(err).Str("name", n).Str("value", v).Msg("usi-setoption-failed")
		h.infoString(err)
		return
	}
	if h.store != nil {
		if err := h.store.SaveOption(n, v); err != nil {
			h.log.Warn().Err(err).Str("name", n).Msg("option-persist-failed")
		}
	}
}

// handleNewGame resets the engine for a new game.
func (h *Handler) handleNewGame() {
	h.stopSearch()
	h.engine.NewGame()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sfen, h.moves = "startpos", nil
	h.started = time.Now()
	h.thinking = 0
	h.forfeited = false
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos [moves 7g7f 3c3d ...]
//   - position sfen <sfen> [moves ...]
func (h *Handler) handlePosition(args []string) {
	if len(args) == 0 {
		h.infoString(errors.New("position: missing arguments"))
		return
	}

	movesAt := slices.Index(args, "moves")
	head := args
	var moves []string
	if movesAt >= 0 {
		head, moves = args[:movesAt], args[movesAt+1:]
	}

	var sfen string
	switch head[0] {
	case "startpos":
		sfen = "startpos"
	case "sfen":
		sfen = strings.Join(head[1:], " ")
	default:
		h.infoString(fmt.Errorf("position: unknown format %q", head[0]))
		return
	}

	if err := h.engine.SetPosition(sfen, moves); err != nil {
		h.log.Warn().Err(err).Str("sfen", sfen).Msg("usi-position-failed")
		h.infoString(err)
		return
	}

	h.mu.Lock()
	h.sfen, h.moves = sfen, slices.Clone(moves)
	h.mu.Unlock()
}

// handleGo starts a search with the given parameters.
func (h *Handler) handleGo(ctx context.Context, args []string) {
	p, err := parseGo(args)
	if err != nil {
		h.infoString(err)
		return
	}
	h.wait()

	side := h.engine.Position().SideToMove
	updates, err := h.engine.Go(ctx, p.limits(side))
	if err != nil {
		h.log.Warn().Err(err).Msg("usi-go-failed")
		h.infoString(err)
		// the host still expects a move
		h.println("bestmove resign")
		return
	}

	h.mu.Lock()
	h.ponderHit = time.Time{}
	h.mu.Unlock()

	done := make(chan struct{})
	h.searchDone = done
	go h.report(updates, p, side, time.Now(), done)
}

// report prints the search output and books the time the move took.
func (h *Handler) report(updates <-chan engine.SearchUpdate, p goParams, side board.Color, start time.Time, done chan struct{}) {
	defer close(done)

	for u := range updates {
		if !u.Final {
			h.sendInfo(u)
			continue
		}

		switch {
		case u.Forfeited, u.BestMove == board.NoMove:
			h.println("bestmove resign")
		case u.PonderMove != board.NoMove:
			h.printf("bestmove %s ponder %s\n", u.BestMove, u.PonderMove)
		default:
			h.printf("bestmove %s\n", u.BestMove)
		}

		h.mu.Lock()
		hit := h.ponderHit
		if u.Forfeited {
			h.forfeited = true
		}
		h.mu.Unlock()

		// A ponder search that was never hit did not use our clock.
		if u.Forfeited || p.ponder && hit.IsZero() {
			return
		}
		from := start
		if p.ponder {
			from = hit
		}
		h.bookMove(time.Since(from), p, side)
	}
}

// bookMove charges spent to the game clock.
func (h *Handler) bookMove(spent time.Duration, p goParams, side board.Color) {
	h.mu.Lock()
	h.thinking += spent
	h.mu.Unlock()

	if p.byoyomi <= 0 {
		return
	}
	err := h.engine.FinishMove(spent, p.timeState(side))
	if errors.Is(err, engine.ErrTimeForfeit) {
		h.mu.Lock()
		h.forfeited = true
		h.mu.Unlock()
		h.infoString(err)
	}
}

// sendInfo outputs one progress line in USI format.
func (h *Handler) sendInfo(u engine.SearchUpdate) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", u.Depth, u.SelDepth)
	if u.MultiPV > 0 {
		fmt.Fprintf(&sb, " multipv %d", u.MultiPV)
	}
	fmt.Fprintf(&sb, " score %s nodes %d nps %d", engine.ScoreToString(u.Score), u.Nodes, u.NPS)
	if u.HashFull > 0 {
		fmt.Fprintf(&sb, " hashfull %d", u.HashFull)
	}
	fmt.Fprintf(&sb, " time %d", u.Time.Milliseconds())
	if len(u.PV) > 0 {
		pv := lo.Map(u.PV, func(m board.Move, _ int) string { return m.String() })
		sb.WriteString(" pv " + strings.Join(pv, " "))
	}
	h.println(sb.String())
}

// handlePonderHit switches a ponder search to the real clock.
func (h *Handler) handlePonderHit() {
	h.mu.Lock()
	h.ponderHit = time.Now()
	h.mu.Unlock()
	h.engine.PonderHit()
}

// stopSearch stops the current search and waits for its bestmove.
func (h *Handler) stopSearch() {
	h.engine.Stop()
	h.wait()
}

// wait blocks until the output of the last search is complete.
func (h *Handler) wait() {
	if h.searchDone != nil {
		<-h.searchDone
	}
}

// handleGameOver records the finished game.
func (h *Handler) handleGameOver(args []string) {
	h.stopSearch()
	if len(args) == 0 {
		h.infoString(errors.New("gameover: missing result"))
		return
	}
	result, err := storage.ParseResult(args[0])
	if err != nil {
		h.infoString(err)
		return
	}

	h.mu.Lock()
	rec := storage.GameRecord{
		Started:   h.started,
		Finished:  time.Now(),
		StartSFEN: h.sfen,
		Moves:     slices.Clone(h.moves),
		Result:    result,
		Forfeited: h.forfeited,
		Thinking:  h.thinking,
	}
	h.mu.Unlock()

	h.log.Info().Str("result", string(result)).Int("moves", len(rec.Moves)).Bool("forfeited", rec.Forfeited).Msg("game-over")
	if h.store == nil {
		return
	}
	if err := h.store.SaveGame(rec); err != nil {
		h.log.Warn().Err(err).Msg("game-persist-failed")
	}
}

// handlePerft runs a perft test and prints the count below each root move.
func (h *Handler) handlePerft(args []string) {
	depth := 3
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			h.infoString(fmt.Errorf("perft: bad depth %q", args[0]))
			return
		}
		depth = d
	}

	start := time.Now()
	divide := h.engine.Divide(depth)
	elapsed := time.Since(start)

	moves := lo.Keys(divide)
	slices.SortFunc(moves, func(a, b board.Move) int { return strings.Compare(a.String(), b.String()) })
	var nodes uint64
	for _, m := range moves {
		h.printf("%s: %d\n", m, divide[m])
		nodes += divide[m]
	}

	h.printf("Nodes: %d\n", nodes)
	h.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		h.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
