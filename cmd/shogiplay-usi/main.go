package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/shogiplay/internal/engine"
	"github.com/hailam/shogiplay/internal/storage"
	"github.com/hailam/shogiplay/internal/usi"
)

// defaultNet is the network file picked up automatically when present.
const defaultNet = "shogiplay.nnue"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	dataDir    = flag.String("datadir", "", "directory for the option store and networks")
	logLevel   = flag.String("log-level", "", "log level (trace, debug, info, warn, error)")
	hashMB     = flag.Int("hash", 64, "initial transposition table size in MB")
)

// envOr returns the flag value, falling back to the environment.
func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}

func main() {
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(envOr(*logLevel, "SHOGIPLAY_LOG"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("shogiplay-exit")
	}
}

func run() error {
	if profilePath := envOr(*cpuprofile, "CPUPROFILE"); profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profile-enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewEngine(*hashMB)

	var store usi.Store
	dir, err := storage.DataDir(envOr(*dataDir, "SHOGIPLAY_DATA_DIR"))
	if err != nil {
		log.Warn().Err(err).Msg("data-dir-unavailable")
	} else {
		st, err := openStore(dir)
		if err != nil {
			log.Warn().Err(err).Msg("storage-unavailable")
		} else {
			defer st.Close()
			store = st
			restoreOptions(eng, st)
		}
		autoLoadNetwork(eng, dir)
	}

	protocol := usi.New(eng, usi.Config{
		Out:    os.Stdout,
		Store:  store,
		Logger: log.Logger.With().Str("component", "usi").Logger(),
	})
	if err := protocol.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func openStore(dataDir string) (*storage.Storage, error) {
	dbDir, err := storage.DatabaseDir(dataDir)
	if err != nil {
		return nil, err
	}
	return storage.Open(dbDir, log.Logger.With().Str("component", "storage").Logger())
}

// restoreOptions applies the option values saved by earlier sessions.
// EvalFile goes before UseNNUE so the network loads from the right file.
func restoreOptions(eng *engine.Engine, st *storage.Storage) {
	saved, err := st.LoadOptions()
	if err != nil {
		log.Warn().Err(err).Msg("options-load-failed")
		return
	}
	for _, o := range eng.Options() {
		value, ok := saved[o.Name]
		if !ok {
			continue
		}
		if err := eng.SetOption(o.Name, value); err != nil {
			log.Warn().Err(err).Str("name", o.Name).Msg("option-restore-failed")
		}
	}
}

// autoLoadNetwork enables the network evaluator when a weights file sits in
// one of the standard locations and no file was configured.
func autoLoadNetwork(eng *engine.Engine, dataDir string) {
	if file, _ := eng.OptionValue("EvalFile"); file != "" {
		return
	}
	netDir, err := storage.NetworkDir(dataDir)
	if err != nil {
		netDir = filepath.Join(dataDir, "nnue")
	}
	for _, dir := range []string{netDir, "./nnue", "."} {
		path := filepath.Join(dir, defaultNet)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := eng.SetOption("EvalFile", path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("network-load-failed")
			continue
		}
		if err := eng.SetOption("UseNNUE", "true"); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("network-load-failed")
			continue
		}
		log.Info().Str("path", path).Msg("network-loaded")
		return
	}
}
