package populate

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/codegraph-loader/internal/domain"
	"github.com/yungbote/codegraph-loader/internal/platform/logger"
)

type fakeStore struct {
	calls []string

	wipeDeleted int64
	wipeErr     error

	constraintLabels []string

	nodeBatches [][]domain.NodeRecord
	nodeErr     error

	edgeBatches [][]domain.EdgeRecord
	edgeErr     error
	// edgeAffected overrides the per-batch link count; nil means every
	// submitted edge counts.
	edgeAffected func(batch []domain.EdgeRecord) int64
}

func (f *fakeStore) Wipe(ctx context.Context) (int64, error) {
	f.calls = append(f.calls, "wipe")
	if f.wipeErr != nil {
		return 0, f.wipeErr
	}
	return f.wipeDeleted, nil
}

func (f *fakeStore) EnsureConstraints(ctx context.Context, labels []string) {
	f.calls = append(f.calls, "constraints")
	f.constraintLabels = labels
}

func (f *fakeStore) UpsertNodes(ctx context.Context, batch []domain.NodeRecord) (int64, error) {
	f.calls = append(f.calls, "nodes")
	if f.nodeErr != nil {
		return 0, f.nodeErr
	}
	f.nodeBatches = append(f.nodeBatches, batch)
	return int64(len(batch)), nil
}

func (f *fakeStore) LinkEdges(ctx context.Context, batch []domain.EdgeRecord) (int64, error) {
	f.calls = append(f.calls, "edges")
	if f.edgeErr != nil {
		return 0, f.edgeErr
	}
	f.edgeBatches = append(f.edgeBatches, batch)
	if f.edgeAffected != nil {
		return f.edgeAffected(batch), nil
	}
	return int64(len(batch)), nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func testPayload() *domain.GraphPayload {
	return &domain.GraphPayload{
		Nodes: []domain.NodeRecord{
			{ID: "A", Type: "class"},
			{ID: "B", Type: "method"},
		},
		Edges: []domain.EdgeRecord{
			{SourceID: "A", TargetID: "B", Type: "contains"},
		},
	}
}

func TestRun_FullLoad(t *testing.T) {
	store := &fakeStore{}
	summary, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, testPayload(), Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Nodes.Submitted != 2 || summary.Nodes.Affected != 2 {
		t.Fatalf("unexpected node totals: %+v", summary.Nodes)
	}
	if summary.Edges.Submitted != 1 || summary.Edges.Affected != 1 {
		t.Fatalf("unexpected edge totals: %+v", summary.Edges)
	}
	if summary.Nodes.Mismatch() || summary.Edges.Mismatch() {
		t.Fatalf("unexpected discrepancy: %+v", summary)
	}
	for _, c := range store.calls {
		if c == "wipe" {
			t.Fatal("wipe ran without being requested")
		}
	}
}

func TestRun_PhaseOrderAndWipe(t *testing.T) {
	store := &fakeStore{wipeDeleted: 7}
	summary, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, testPayload(), Options{Wipe: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Wiped != 7 {
		t.Fatalf("wiped count not propagated: %d", summary.Wiped)
	}

	want := []string{"wipe", "constraints", "nodes", "edges"}
	if len(store.calls) != len(want) {
		t.Fatalf("unexpected call sequence: %v", store.calls)
	}
	for i, c := range want {
		if store.calls[i] != c {
			t.Fatalf("call %d = %q, want %q (full: %v)", i, store.calls[i], c, store.calls)
		}
	}
	if len(store.constraintLabels) != 2 || store.constraintLabels[0] != "Class" || store.constraintLabels[1] != "Method" {
		t.Fatalf("unexpected constraint labels: %v", store.constraintLabels)
	}
}

func TestRun_BatchSizeSplitsNodes(t *testing.T) {
	payload := &domain.GraphPayload{}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		payload.Nodes = append(payload.Nodes, domain.NodeRecord{ID: id, Type: "class"})
	}

	store := &fakeStore{}
	summary, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, payload, Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Nodes.Affected != 5 {
		t.Fatalf("unexpected affected count: %d", summary.Nodes.Affected)
	}

	sizes := make([]int, 0, len(store.nodeBatches))
	for _, b := range store.nodeBatches {
		sizes = append(sizes, len(b))
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Fatalf("unexpected batch sizes: %v", sizes)
	}
	if store.nodeBatches[2][0].ID != "E" {
		t.Fatalf("order broken in final batch: %+v", store.nodeBatches[2])
	}
}

func TestRun_MissingEndpointSurfacesAsDiscrepancy(t *testing.T) {
	payload := &domain.GraphPayload{
		Nodes: []domain.NodeRecord{{ID: "A", Type: "class"}},
		Edges: []domain.EdgeRecord{{SourceID: "A", TargetID: "Z", Type: "calls"}},
	}
	store := &fakeStore{
		edgeAffected: func(batch []domain.EdgeRecord) int64 { return 0 },
	}

	summary, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, payload, Options{})
	if err != nil {
		t.Fatalf("missing endpoints must not fail the run: %v", err)
	}
	if summary.Edges.Submitted != 1 || summary.Edges.Affected != 0 {
		t.Fatalf("unexpected edge totals: %+v", summary.Edges)
	}
	if !summary.Edges.Mismatch() {
		t.Fatal("expected an edge-phase discrepancy")
	}
	if summary.Nodes.Mismatch() {
		t.Fatal("node phase must reconcile cleanly")
	}
}

func TestRun_NodeBatchErrorAbortsBeforeEdges(t *testing.T) {
	store := &fakeStore{nodeErr: errors.New("connection reset")}
	_, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, testPayload(), Options{})
	if err == nil {
		t.Fatal("expected node phase failure to propagate")
	}
	for _, c := range store.calls {
		if c == "edges" {
			t.Fatal("edge phase ran after node phase failed")
		}
	}
}

func TestRun_EdgeBatchErrorIsFatal(t *testing.T) {
	store := &fakeStore{edgeErr: errors.New("tx timeout")}
	_, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, testPayload(), Options{})
	if err == nil {
		t.Fatal("expected edge phase failure to propagate")
	}
}

func TestRun_WipeErrorIsFatal(t *testing.T) {
	store := &fakeStore{wipeErr: errors.New("denied")}
	_, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, testPayload(), Options{Wipe: true})
	if err == nil {
		t.Fatal("expected wipe failure to propagate")
	}
	for _, c := range store.calls {
		if c == "nodes" || c == "edges" {
			t.Fatalf("phase ran after wipe failed: %v", store.calls)
		}
	}
}

func TestRun_EmptyPhasesSkipped(t *testing.T) {
	store := &fakeStore{}
	summary, err := Run(context.Background(), Deps{Store: store, Log: testLogger(t)}, &domain.GraphPayload{}, Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Nodes.Submitted != 0 || summary.Edges.Submitted != 0 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	for _, c := range store.calls {
		if c == "nodes" || c == "edges" {
			t.Fatalf("empty phase reached the store: %v", store.calls)
		}
	}
}

func TestRun_RerunProducesSameBatches(t *testing.T) {
	first := &fakeStore{}
	second := &fakeStore{}
	payload := testPayload()

	s1, err := Run(context.Background(), Deps{Store: first, Log: testLogger(t)}, payload, Options{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	s2, err := Run(context.Background(), Deps{Store: second, Log: testLogger(t)}, payload, Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if s1.Nodes != s2.Nodes || s1.Edges != s2.Edges {
		t.Fatalf("reruns diverged: %+v vs %+v", s1, s2)
	}
	if len(first.nodeBatches) != len(second.nodeBatches) {
		t.Fatalf("rerun issued a different batch plan")
	}
}

func TestPhaseTotalsMismatch(t *testing.T) {
	if (PhaseTotals{Submitted: 3, Affected: 3}).Mismatch() {
		t.Fatal("equal totals flagged as mismatch")
	}
	if !(PhaseTotals{Submitted: 3, Affected: 2}).Mismatch() {
		t.Fatal("unequal totals not flagged")
	}
}
