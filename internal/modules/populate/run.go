package populate

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/codegraph-loader/internal/data/graph"
	"github.com/yungbote/codegraph-loader/internal/domain"
	"github.com/yungbote/codegraph-loader/internal/platform/logger"
)

const DefaultBatchSize = 1000

// Store is the write surface the loader needs from the graph database.
// *graph.Store is the real implementation; tests substitute a fake.
type Store interface {
	Wipe(ctx context.Context) (int64, error)
	EnsureConstraints(ctx context.Context, labels []string)
	UpsertNodes(ctx context.Context, batch []domain.NodeRecord) (int64, error)
	LinkEdges(ctx context.Context, batch []domain.EdgeRecord) (int64, error)
}

type Deps struct {
	Store Store
	Log   *logger.Logger
}

type Options struct {
	// Wipe deletes the whole graph before loading.
	Wipe bool
	// BatchSize is records per transaction; non-positive means
	// DefaultBatchSize.
	BatchSize int
}

type Summary struct {
	Nodes   PhaseTotals
	Edges   PhaseTotals
	Wiped   int64
	Elapsed time.Duration
}

// Run executes the load: optional wipe, then the node phase, then the
// edge phase. Batches are strictly sequential, one transaction at a time.
// Any batch failure aborts the run; committed batches stay committed.
// Count discrepancies are reported but never fatal.
func Run(ctx context.Context, deps Deps, payload *domain.GraphPayload, opts Options) (*Summary, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("populate: store required")
	}
	if deps.Log == nil {
		return nil, fmt.Errorf("populate: logger required")
	}
	if payload == nil {
		payload = &domain.GraphPayload{}
	}
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	started := time.Now()
	summary := &Summary{}

	if opts.Wipe {
		deps.Log.Info("clearing database before import")
		deleted, err := deps.Store.Wipe(ctx)
		if err != nil {
			deps.Log.Error("database clear failed", "error", err)
			return nil, fmt.Errorf("populate: wipe: %w", err)
		}
		summary.Wiped = deleted
		deps.Log.Info("database cleared", "nodes_deleted", deleted)
	}

	deps.Store.EnsureConstraints(ctx, nodeLabels(payload.Nodes))

	nodes, err := runPhase(ctx, deps.Log, "nodes", payload.Nodes, size, deps.Store.UpsertNodes)
	if err != nil {
		return nil, err
	}
	summary.Nodes = nodes

	edges, err := runPhase(ctx, deps.Log, "edges", payload.Edges, size, deps.Store.LinkEdges)
	if err != nil {
		return nil, err
	}
	summary.Edges = edges

	summary.Elapsed = time.Since(started)
	return summary, nil
}

// runPhase drives one record sequence through the batch loop: split,
// write, accumulate affected counts, report progress, reconcile. An empty
// sequence skips the phase entirely.
func runPhase[T any](ctx context.Context, log *logger.Logger, phase string, records []T, size int, write func(context.Context, []T) (int64, error)) (PhaseTotals, error) {
	totals := PhaseTotals{Submitted: int64(len(records))}
	if len(records) == 0 {
		log.Info("no data to insert", "phase", phase)
		return totals, nil
	}

	log.Info("inserting records", "phase", phase, "total", len(records), "batch_size", size)
	progress := newProgressReporter(phase, func(phase string, processed, total int, perSec float64) {
		log.Info("progress", "phase", phase, "processed", processed, "total", total,
			"per_sec", fmt.Sprintf("%.0f", perSec))
	}, len(records), 0)

	for _, batch := range splitBatches(records, size) {
		affected, err := write(ctx, batch)
		if err != nil {
			log.Error("batch write failed", "phase", phase,
				"processed", totals.Affected, "error", err)
			return totals, fmt.Errorf("populate: %s phase: %w", phase, err)
		}
		totals.Affected += affected
		progress.Advance(len(batch))
	}

	reportReconciliation(log, phase, totals)
	return totals, nil
}

// nodeLabels collects the distinct normalized labels of a node sequence,
// first-seen order.
func nodeLabels(nodes []domain.NodeRecord) []string {
	seen := map[string]bool{}
	labels := make([]string, 0, 4)
	for _, n := range nodes {
		label := graph.NodeLabel(n.Type)
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}
