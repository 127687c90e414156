package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/codegraph-loader/internal/data/graph"
	"github.com/yungbote/codegraph-loader/internal/domain"
	"github.com/yungbote/codegraph-loader/internal/modules/populate"
	"github.com/yungbote/codegraph-loader/internal/platform/envutil"
	"github.com/yungbote/codegraph-loader/internal/platform/logger"
	"github.com/yungbote/codegraph-loader/internal/platform/neo4jdb"
)

func main() {
	os.Exit(run())
}

type cliConfig struct {
	uri       string
	user      string
	password  string
	database  string
	clear     bool
	batchSize int
}

// registerFlags binds the loader's flags, each with the short alias the
// analysis tooling already passes (-u, -p, -db, -c).
func registerFlags(fs *flag.FlagSet) *cliConfig {
	cfg := &cliConfig{
		uri:       envutil.String("NEO4J_URI", "neo4j://localhost:7687"),
		user:      envutil.String("NEO4J_USER", "neo4j"),
		password:  envutil.String("NEO4J_PASSWORD", ""),
		database:  envutil.String("NEO4J_DATABASE", "neo4j"),
		batchSize: envutil.Int("DB_BATCH_SIZE", populate.DefaultBatchSize),
	}
	fs.StringVar(&cfg.uri, "uri", cfg.uri, "Neo4j Bolt URI (NEO4J_URI)")
	fs.StringVar(&cfg.uri, "u", cfg.uri, "shorthand for -uri")
	fs.StringVar(&cfg.user, "user", cfg.user, "Neo4j username (NEO4J_USER)")
	fs.StringVar(&cfg.password, "password", cfg.password, "Neo4j password (NEO4J_PASSWORD)")
	fs.StringVar(&cfg.password, "p", cfg.password, "shorthand for -password")
	fs.StringVar(&cfg.database, "database", cfg.database, "Neo4j database name (NEO4J_DATABASE)")
	fs.StringVar(&cfg.database, "db", cfg.database, "shorthand for -database")
	fs.BoolVar(&cfg.clear, "clear", cfg.clear, "clear the existing graph before importing")
	fs.BoolVar(&cfg.clear, "c", cfg.clear, "shorthand for -clear")
	fs.IntVar(&cfg.batchSize, "db-batch-size", cfg.batchSize, "records per write transaction")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <input.json>\n\nPopulates a Neo4j database from a code-analysis graph export.\n\n", os.Args[0])
		fs.PrintDefaults()
	}
	return cfg
}

// run keeps the exit code out of main so deferred cleanup (driver close,
// log flush) executes on every path.
func run() int {
	fs := flag.NewFlagSet("populate", flag.ContinueOnError)
	cfg := registerFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	inputPath := fs.Arg(0)

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	log = log.With("run_id", uuid.NewString())

	if cfg.password == "" {
		log.Warn("neo4j password not provided via --password or NEO4J_PASSWORD; connecting without one")
	}

	started := time.Now()
	log.Info("loading graph payload", "input", inputPath)
	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Error("failed to read input file", "input", inputPath, "error", err)
		return 1
	}
	payload, err := domain.ParseGraphPayload(data)
	if err != nil {
		log.Error("failed to parse input file", "input", inputPath, "error", err)
		return 1
	}
	log.Info("graph payload loaded", "nodes", len(payload.Nodes), "edges", len(payload.Edges))

	log.Info("connecting to neo4j", "uri", cfg.uri, "database", cfg.database)
	client, err := neo4jdb.New(log, neo4jdb.Config{
		URI:      cfg.uri,
		Username: cfg.user,
		Password: cfg.password,
		Database: cfg.database,
	})
	if err != nil {
		log.Error("neo4j connection failed", "error", err)
		return 1
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.Warn("closing neo4j connection failed", "error", err)
			return
		}
		log.Info("neo4j connection closed")
	}()

	summary, err := populate.Run(context.Background(), populate.Deps{
		Store: graph.NewStore(client, log),
		Log:   log,
	}, payload, populate.Options{
		Wipe:      cfg.clear,
		BatchSize: cfg.batchSize,
	})
	if err != nil {
		log.Error("population failed", "error", err)
		return 1
	}

	log.Info("population finished",
		"nodes_processed", summary.Nodes.Affected,
		"edges_created", summary.Edges.Affected,
		"elapsed_seconds", fmt.Sprintf("%.2f", time.Since(started).Seconds()))
	return 0
}
