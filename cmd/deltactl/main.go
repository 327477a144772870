package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/viant/vecdelta"
	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/engine"
	"github.com/viant/vecdelta/vecadmin"
	"github.com/viant/vecdelta/vecsync"
	"github.com/viant/vecdelta/vector"
)

const usage = `usage: deltactl [-config file] <command> [args]

commands:
  demo                      walk through delta computation, encoding and apply
  put <id> <v1,v2,...>      store a new version of a document
  get [-version n] <id>     print the latest or a past version
  history <id>              list stored versions
  nearest [-k n] <v1,...>   rank documents by cosine similarity
  stats                     print dataset counters
  compact                   collapse history into one full version per document
  sync [-follow]            replicate the upstream change log into db
  version                   print the version
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "deltactl: %v\n", err)
		os.Exit(1)
	}
}

func initLogger(level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", "deltactl").Logger()
	log.Logger = logger
	return logger
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("deltactl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", "", "TOML config file")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	args = flags.Args()
	if len(args) == 0 {
		return errors.New(usage)
	}
	logger := initLogger(cfg.LogLevel)

	cmd, args := args[0], args[1:]
	switch cmd {
	case "demo":
		return runDemo(out)
	case "version":
		fmt.Fprintln(out, vecdelta.Version())
		return nil
	case "put", "get", "history", "nearest", "stats", "compact":
		db, store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		switch cmd {
		case "put":
			return runPut(ctx, cfg, store, args, out)
		case "get":
			return runGet(ctx, cfg, store, args, out)
		case "history":
			return runHistory(ctx, cfg, store, args, out)
		case "nearest":
			return runNearest(ctx, cfg, store, args, out)
		default:
			return runAdmin(ctx, db, cmd+":"+cfg.Dataset, out)
		}
	case "sync":
		return runSync(ctx, cfg, logger, args, out)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// openStore opens cfg.DB with a publisher attached so the database can
// serve as an upstream for other replicas.
func openStore(cfg config, logger zerolog.Logger) (*sql.DB, *vector.SQLiteStore, error) {
	db, err := engine.Open(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := engine.RegisterDeltaFunctions(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	pub, err := vecsync.NewPublisher(db, vecsync.WithCompression(cfg.Compression), vecsync.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	store, err := vector.NewSQLiteStore(db,
		vector.WithStrategy(cfg.Strategy),
		vector.WithLogger(logger),
		vector.WithHook(pub))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func parseValues(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	values := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, fmt.Errorf("parse value %q: %w", p, err)
		}
		values = append(values, float32(f))
	}
	if len(values) == 0 {
		return nil, errors.New("no values given")
	}
	return values, nil
}

func formatValues(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

func runPut(ctx context.Context, cfg config, store *vector.SQLiteStore, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("put requires <id> <values>")
	}
	values, err := parseValues(args[1])
	if err != nil {
		return err
	}
	vec := embedding.FromF32(values)
	if cfg.DType == embedding.F16 {
		vec = embedding.FromF16(values)
	}
	u, err := store.Put(ctx, cfg.Dataset, args[0], vec)
	if err != nil {
		return err
	}
	if !u.Changed {
		fmt.Fprintf(out, "%s unchanged at version %d\n", args[0], u.Version)
		return nil
	}
	fmt.Fprintf(out, "%s version %d %s changes=%d bytes=%d\n", args[0], u.Version, u.Strategy, u.Changes, len(u.Payload))
	return nil
}

func runGet(ctx context.Context, cfg config, store *vector.SQLiteStore, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("get", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	version := flags.Uint64("version", 0, "version to rebuild; 0 means latest")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("get requires <id>")
	}
	id := flags.Arg(0)
	var (
		vec embedding.Vector
		err error
	)
	if *version == 0 {
		vec, *version, err = store.Get(ctx, cfg.Dataset, id)
	} else {
		vec, err = store.GetVersion(ctx, cfg.Dataset, id, *version)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s version %d %s dim=%d [%s]\n", id, *version, vec.DType, vec.Dim, formatValues(vec.Float32s()))
	return nil
}

func runHistory(ctx context.Context, cfg config, store *vector.SQLiteStore, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("history requires <id>")
	}
	updates, err := store.History(ctx, cfg.Dataset, args[0])
	if err != nil {
		return err
	}
	for _, u := range updates {
		fmt.Fprintf(out, "%d\t%s\tchanges=%d\tbytes=%d\tdrift=%.6f\t%s\n",
			u.Version, u.Strategy, u.Changes, len(u.Payload), u.Drift, u.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runNearest(ctx context.Context, cfg config, store *vector.SQLiteStore, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("nearest", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	k := flags.Int("k", 5, "number of matches")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("nearest requires <values>")
	}
	values, err := parseValues(flags.Arg(0))
	if err != nil {
		return err
	}
	matches, err := store.Nearest(ctx, cfg.Dataset, embedding.FromF32(values), *k)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%s\t%.4f\n", m.ID, m.Score)
	}
	return nil
}

func runAdmin(ctx context.Context, db *sql.DB, command string, out io.Writer) error {
	rows, err := vecadmin.Exec(ctx, db, command)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintln(out, row)
	}
	return nil
}

func runSync(ctx context.Context, cfg config, logger zerolog.Logger, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("sync", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	follow := flags.Bool("follow", false, "keep replicating until interrupted")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if cfg.Upstream == "" {
		return errors.New("sync requires upstream in config")
	}
	upstream, err := engine.Open(cfg.Upstream)
	if err != nil {
		return err
	}
	defer upstream.Close()
	db, store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rep, err := vecsync.NewReplicator(upstream, store, vecsync.Config{
		DatasetID: cfg.Dataset,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.Interval,
	}, vecsync.WithLogger(logger))
	if err != nil {
		return err
	}
	if *follow {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return rep.Run(ctx)
	}
	total := 0
	for {
		n, err := rep.SyncOnce(ctx)
		total += n
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	state, err := rep.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "synced %d entries, scn %d\n", total, state.LastSCN)
	return nil
}

func runDemo(out io.Writer) error {
	vec1 := embedding.FromF32([]float32{0.1, 0.2, 0.3, 0.4, 0.5})
	vec2 := embedding.FromF32([]float32{0.1, 0.25, 0.3, 0.45, 0.5})
	fmt.Fprintf(out, "vector 1: dim=%d bytes=%d\n", vec1.Dim, len(vec1.Data))
	fmt.Fprintf(out, "vector 2: dim=%d bytes=%d\n", vec2.Dim, len(vec2.Data))

	delta, err := embedding.FromVectors(vec1, vec2, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "delta: base_id=%d changes=%d indices=%v\n", delta.BaseID, len(delta.Changes), delta.Indices())

	encoded, err := delta.Encode()
	if err != nil {
		return err
	}
	strategy := embedding.ChooseStrategy(delta, vec2.Dim, embedding.StrategyAuto)
	fmt.Fprintf(out, "encoded: %d bytes, full vector %d bytes, strategy %s\n", len(encoded), len(vec2.Data), strategy)

	decoded, err := embedding.Decode(encoded)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "decoded: base_id=%d changes=%d\n", decoded.BaseID, len(decoded.Changes))

	updated, err := decoded.Apply(vec1)
	if err != nil {
		return err
	}
	if !updated.Equal(vec2) {
		return errors.New("applied delta does not reproduce vector 2")
	}
	fmt.Fprintf(out, "applied: dim=%d matches vector 2\n", updated.Dim)
	return nil
}
