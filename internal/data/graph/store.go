package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/codegraph-loader/internal/domain"
	"github.com/yungbote/codegraph-loader/internal/platform/logger"
	"github.com/yungbote/codegraph-loader/internal/platform/neo4jdb"
)

// Store issues the loader's write statements against Neo4j. Each exported
// write method is one transaction: a batch either commits whole or fails
// whole.
type Store struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewStore(client *neo4jdb.Client, log *logger.Logger) *Store {
	return &Store{client: client, log: log.With("store", "graph")}
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

// UpsertNodes merges every record in the batch by id and replaces all of
// its stored properties with the incoming ones. The replace is full, not
// additive: a property present in the store but absent from the record is
// dropped. Returns the number of rows the statement touched.
func (s *Store) UpsertNodes(ctx context.Context, batch []domain.NodeRecord) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	groups := groupNodesByLabel(batch)

	session := s.session(ctx)
	defer session.Close(ctx)

	affected, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var total int64
		for _, g := range groups {
			res, err := tx.Run(ctx, nodeUpsertQuery(g.tag), map[string]any{"batch": g.rows})
			if err != nil {
				return nil, err
			}
			n, err := singleCount(ctx, res)
			if err != nil {
				return nil, err
			}
			total += n
		}
		return total, nil
	})
	if err != nil {
		return 0, fmt.Errorf("graph: upsert nodes: %w", err)
	}
	return affected.(int64), nil
}

// LinkEdges creates one typed relationship per record whose endpoints both
// exist. A record referencing an unknown id drops out of the MATCH and
// contributes zero to the returned count without failing the batch.
func (s *Store) LinkEdges(ctx context.Context, batch []domain.EdgeRecord) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	groups := groupEdgesByType(batch)

	session := s.session(ctx)
	defer session.Close(ctx)

	affected, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var total int64
		for _, g := range groups {
			res, err := tx.Run(ctx, edgeLinkQuery(g.tag), map[string]any{"batch": g.rows})
			if err != nil {
				return nil, err
			}
			n, err := singleCount(ctx, res)
			if err != nil {
				return nil, err
			}
			total += n
		}
		return total, nil
	})
	if err != nil {
		return 0, fmt.Errorf("graph: link edges: %w", err)
	}
	return affected.(int64), nil
}

// Wipe deletes every node and relationship in the target database and
// reports how many nodes went away. Wiping an empty store is a no-op.
func (s *Store) Wipe(ctx context.Context) (int64, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return int64(summary.Counters().NodesDeleted()), nil
	})
	if err != nil {
		return 0, fmt.Errorf("graph: wipe: %w", err)
	}
	return deleted.(int64), nil
}

// EnsureConstraints creates a unique-id constraint per node label, best
// effort (may fail for restricted users).
func (s *Store) EnsureConstraints(ctx context.Context, labels []string) {
	if len(labels) == 0 {
		return
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	for _, label := range labels {
		stmt := constraintQuery(label)
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("constraint setup failed (continuing)", "label", label, "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

type taggedRows struct {
	tag  string
	rows []map[string]any
}

// groupNodesByLabel partitions a batch by normalized label, preserving
// first-seen order so writes stay deterministic.
func groupNodesByLabel(batch []domain.NodeRecord) []taggedRows {
	index := map[string]int{}
	groups := make([]taggedRows, 0, 1)
	for _, rec := range batch {
		label := NodeLabel(rec.Type)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, taggedRows{tag: label})
		}
		groups[i].rows = append(groups[i].rows, nodeProps(rec))
	}
	return groups
}

func groupEdgesByType(batch []domain.EdgeRecord) []taggedRows {
	index := map[string]int{}
	groups := make([]taggedRows, 0, 1)
	for _, rec := range batch {
		relType := RelType(rec.Type)
		i, ok := index[relType]
		if !ok {
			i = len(groups)
			index[relType] = i
			groups = append(groups, taggedRows{tag: relType})
		}
		groups[i].rows = append(groups[i].rows, map[string]any{
			"sourceId": rec.SourceID,
			"targetId": rec.TargetID,
		})
	}
	return groups
}

// nodeProps flattens a record into the property map stored on the node.
// id and type are stored as plain properties alongside the open props,
// matching the export document's shape.
func nodeProps(rec domain.NodeRecord) map[string]any {
	props := make(map[string]any, len(rec.Props)+2)
	for k, v := range rec.Props {
		props[k] = v
	}
	props["id"] = rec.ID
	props["type"] = rec.Type
	return props
}

// nodeUpsertQuery merges label-less: id alone is the merge key, so a
// record whose type changed between runs updates the existing node
// instead of minting a second one under the new label. The label is
// applied afterwards via SET.
func nodeUpsertQuery(label string) string {
	return fmt.Sprintf(`
UNWIND $batch AS node
MERGE (n {id: node.id})
SET n = node
SET n:%s
RETURN count(n) AS affected
`, label)
}

func edgeLinkQuery(relType string) string {
	return fmt.Sprintf(`
UNWIND $batch AS edge
MATCH (source {id: edge.sourceId})
MATCH (target {id: edge.targetId})
CREATE (source)-[r:%s]->(target)
RETURN count(r) AS affected
`, relType)
}

func constraintQuery(label string) string {
	return fmt.Sprintf(
		`CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE`,
		sanitizeIdentifier(label), label,
	)
}

func singleCount(ctx context.Context, res neo4j.ResultWithContext) (int64, error) {
	rec, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := rec.Get("affected")
	if !ok {
		return 0, fmt.Errorf("result missing affected count")
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected affected count type %T", v)
	}
	return n, nil
}
