package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Storage keys
const (
	optionPrefix = "option/"
	gamePrefix   = "game/"
	keyStats     = "stats"
)

// Result is the outcome of a game from the engine's point of view.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "lose"
	ResultDraw Result = "draw"
)

// ParseResult converts the argument of a USI gameover command.
func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case ResultWin, ResultLoss, ResultDraw:
		return r, nil
	}
	return "", fmt.Errorf("unknown game result %q", s)
}

// GameRecord is one finished game.
type GameRecord struct {
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	StartSFEN string        `json:"start_sfen"`
	Moves     []string      `json:"moves"`
	Result    Result        `json:"result"`
	Forfeited bool          `json:"forfeited,omitempty"`
	Thinking  time.Duration `json:"thinking"`
}

// GameStats aggregates the recorded results.
type GameStats struct {
	GamesPlayed    int           `json:"games_played"`
	Wins           int           `json:"wins"`
	Losses         int           `json:"losses"`
	Draws          int           `json:"draws"`
	Forfeits       int           `json:"forfeits"`
	TotalThinking  time.Duration `json:"total_thinking"`
	LongestWinStrk int           `json:"longest_win_streak"`
	CurrentStreak  int           `json:"current_streak"`
}

// WinRate returns the win rate as a percentage (0-100).
func (s *GameStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// add books one result.
func (s *GameStats) add(rec GameRecord) {
	s.GamesPlayed++
	s.TotalThinking += rec.Thinking
	if rec.Forfeited {
		s.Forfeits++
	}
	switch rec.Result {
	case ResultWin:
		s.Wins++
		s.CurrentStreak++
		s.LongestWinStrk = max(s.LongestWinStrk, s.CurrentStreak)
	case ResultLoss:
		s.Losses++
		s.CurrentStreak = 0
	default:
		s.Draws++
		s.CurrentStreak = 0
	}
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string, logger zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", dir, err)
	}
	logger.Debug().Str("dir", dir).Msg("storage-open")
	return &Storage{db: db, log: logger}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOption persists an engine option value.
func (s *Storage) SaveOption(name, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(optionPrefix+name), []byte(value))
	})
}

// LoadOptions returns every persisted option value by name.
func (s *Storage) LoadOptions() (map[string]string, error) {
	options := make(map[string]string)
	err := s.scan(optionPrefix, func(key, val []byte) error {
		options[strings.TrimPrefix(string(key), optionPrefix)] = string(val)
		return nil
	})
	return options, err
}

// SaveGame stores a finished game and updates the statistics in one transaction.
func (s *Storage) SaveGame(rec GameRecord) error {
	if rec.Finished.IsZero() {
		rec.Finished = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		stats, err := loadStats(txn)
		if err != nil {
			return err
		}
		stats.add(rec)
		statsData, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		if err := txn.Set(gameKey(rec.Finished), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), statsData)
	})
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	s.log.Info().Str("result", string(rec.Result)).Int("moves", len(rec.Moves)).Msg("game-recorded")
	return nil
}

// gameKey orders records by finishing time.
func gameKey(t time.Time) []byte {
	return fmt.Appendf(nil, "%s%020d", gamePrefix, t.UnixNano())
}

// Games returns every recorded game, oldest first.
func (s *Storage) Games() ([]GameRecord, error) {
	var games []GameRecord
	err := s.scan(gamePrefix, func(_, val []byte) error {
		var rec GameRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		games = append(games, rec)
		return nil
	})
	return games, err
}

// LoadStats loads game statistics, returns empty stats if not found.
func (s *Storage) LoadStats() (*GameStats, error) {
	var stats *GameStats
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		stats, err = loadStats(txn)
		return err
	})
	return stats, err
}

func loadStats(txn *badger.Txn) (*GameStats, error) {
	stats := &GameStats{}
	item, err := txn.Get([]byte(keyStats))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, stats)
	})
	return stats, err
}

// scan calls fn for every key with prefix, in key order.
func (s *Storage) scan(prefix string, fn func(key, val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				return fn(item.Key(), val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger routes badger's own messages through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(strings.TrimSpace(format), args...)
}
