// fragfeed - Quake 3 log events, live match notifications and player stats
package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/config"
	"github.com/ernie/fragfeed/internal/eventlog"
	"github.com/ernie/fragfeed/internal/logging"
	"github.com/ernie/fragfeed/internal/storage"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "collect":
		err = cmdCollect(os.Args[2:])
	case "serve":
		err = cmdServe(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "export":
		err = cmdExport(os.Args[2:])
	case "restore":
		err = cmdRestore(os.Args[2:])
	case "user":
		err = cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("fragfeed %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: fragfeed <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  collect [--from-start] [logfile]    Tail the server log and publish events")
	fmt.Println("  serve                               Track matches, persist events and serve the API")
	fmt.Println("  stats [--since all|today|week|DATE] Print the leaderboard")
	fmt.Println("  import [--reset] <games.log>        Decode a complete server log into the event log")
	fmt.Println("  export <file.jsonl.gz>              Write the event log to a gzip archive (- for stdout)")
	fmt.Println("  restore [--reset] <file.jsonl.gz>   Append an archive to the event log")
	fmt.Println("  user add [--admin] <username>       Add an API user (prompts for password)")
	fmt.Println("  user remove <username>              Remove an API user")
	fmt.Println("  user list                           List API users")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Printf("  --config <path>    Path to configuration file (default %s)\n", config.DefaultPath)
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  fragfeed collect /var/log/quake3/games.log")
	fmt.Println("  fragfeed serve --config /etc/fragfeed/config.yml")
	fmt.Println("  fragfeed stats --since week")
	fmt.Println("  fragfeed import --reset games.log")
}

// app is what every command needs after loading its config
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

// newFlagSet returns a flag set carrying the shared --config flag
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "path to configuration file")
	return fs, configPath
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger.Sugar()}, nil
}

// openEventLog opens the configured event log backend
func (a *app) openEventLog(ctx context.Context) (eventlog.Store, error) {
	switch a.cfg.EventLog.Backend {
	case "redis":
		store, err := eventlog.OpenRedis(ctx, a.cfg.EventLog.RedisURL, a.cfg.EventLog.RedisKey)
		if err != nil {
			return nil, err
		}
		a.logger.Infow("Event log opened", "backend", "redis", "key", a.cfg.EventLog.RedisKey)
		return store, nil
	default:
		store, err := storage.New(a.cfg.EventLog.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.logger.Infow("Event log opened", "backend", "sqlite", "path", a.cfg.EventLog.Path)
		return store, nil
	}
}

// openUsers returns the SQLite database holding API users, reusing the
// event log when it already is one. The returned close func is a no-op in
// that case.
func (a *app) openUsers(events eventlog.Store) (*storage.Store, func() error, error) {
	if s, ok := events.(*storage.Store); ok {
		return s, func() error { return nil }, nil
	}
	s, err := storage.New(a.cfg.EventLog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return s, s.Close, nil
}
