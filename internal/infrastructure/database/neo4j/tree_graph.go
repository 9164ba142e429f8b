package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Graph layout:
//
//	(:Molecule {key, smiles, clusters})-[:HAS_CLUSTER]->(:Cluster {idx, kind})
//	(:Cluster)-[:TREE_EDGE]->(:Cluster)
//	(:Cluster)-[:INSTANCE_OF]->(:Signature {smiles})
const (
	cypherUpsertMolecule = `
MERGE (m:Molecule {key: $key})
SET m.smiles = $smiles, m.clusters = $n
WITH m
OPTIONAL MATCH (m)-[:HAS_CLUSTER]->(old:Cluster)
DETACH DELETE old`

	cypherCreateClusters = `
MATCH (m:Molecule {key: $key})
UNWIND $clusters AS c
CREATE (m)-[:HAS_CLUSTER]->(n:Cluster {idx: c.idx, kind: c.kind})
MERGE (s:Signature {smiles: c.signature})
CREATE (n)-[:INSTANCE_OF]->(s)`

	cypherCreateEdges = `
UNWIND $edges AS e
MATCH (m:Molecule {key: $key})-[:HAS_CLUSTER]->(a:Cluster {idx: e[0]}),
      (m)-[:HAS_CLUSTER]->(b:Cluster {idx: e[1]})
CREATE (a)-[:TREE_EDGE]->(b)`

	cypherMoleculesWithSignature = `
MATCH (m:Molecule)-[:HAS_CLUSTER]->(:Cluster)-[:INSTANCE_OF]->(:Signature {smiles: $signature})
RETURN DISTINCT m.smiles AS smiles
ORDER BY smiles
LIMIT $limit`

	cypherSignatureCounts = `
MATCH (m:Molecule)-[:HAS_CLUSTER]->(:Cluster)-[:INSTANCE_OF]->(s:Signature)
RETURN s.smiles AS signature, count(DISTINCT m) AS molecules
ORDER BY molecules DESC, signature
LIMIT $limit`
)

// SignatureCount is the number of stored molecules containing a cluster
// signature.
type SignatureCount struct {
	Signature string `json:"signature"`
	Molecules int64  `json:"molecules"`
}

// TreeGraph persists junction trees.
type TreeGraph struct {
	driver *Driver
	logger logging.Logger
}

// NewTreeGraph binds a TreeGraph to d.
func NewTreeGraph(d *Driver) *TreeGraph {
	return &TreeGraph{driver: d, logger: d.logger}
}

// Save replaces the stored graph of t's molecule.
func (g *TreeGraph) Save(ctx context.Context, t *junction.Tree) error {
	if t == nil || t.SMILES == "" {
		return errors.InvalidParam("tree with a SMILES string is required")
	}
	key := junction.KeyString(t.SMILES)

	clusters := make([]map[string]any, len(t.Clusters))
	for i, c := range t.Clusters {
		clusters[i] = map[string]any{"idx": int64(i), "kind": c.Kind.String(), "signature": c.Signature}
	}
	edges := make([][]int64, len(t.Edges))
	for i, e := range t.Edges {
		edges[i] = []int64{int64(e[0]), int64(e[1])}
	}

	_, err := g.driver.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		if _, err := tx.Run(ctx, cypherUpsertMolecule, map[string]any{
			"key": key, "smiles": t.SMILES, "n": int64(len(clusters)),
		}); err != nil {
			return nil, err
		}
		if len(clusters) > 0 {
			if _, err := tx.Run(ctx, cypherCreateClusters, map[string]any{"key": key, "clusters": clusters}); err != nil {
				return nil, err
			}
		}
		if len(edges) > 0 {
			if _, err := tx.Run(ctx, cypherCreateEdges, map[string]any{"key": key, "edges": edges}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	g.logger.Debug("Junction tree stored", logging.String(logging.FieldSMILES, t.SMILES), logging.Int("clusters", len(clusters)))
	return nil
}

// MoleculesWithSignature lists stored molecules having a cluster with the
// given signature.
func (g *TreeGraph) MoleculesWithSignature(ctx context.Context, signature string, limit int) ([]string, error) {
	if signature == "" {
		return nil, errors.InvalidParam("signature is required")
	}
	if limit <= 0 {
		return nil, errors.InvalidParam("limit must be positive")
	}
	out, err := g.driver.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, cypherMoleculesWithSignature, map[string]any{"signature": signature, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, func(r *neo4j.Record) (string, error) {
			s, _ := r.Values[0].(string)
			return s, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

// SignatureCounts returns the most shared cluster signatures.
func (g *TreeGraph) SignatureCounts(ctx context.Context, limit int) ([]SignatureCount, error) {
	if limit <= 0 {
		return nil, errors.InvalidParam("limit must be positive")
	}
	out, err := g.driver.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, cypherSignatureCounts, map[string]any{"limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, func(r *neo4j.Record) (SignatureCount, error) {
			sig, _ := r.Values[0].(string)
			n, _ := r.Values[1].(int64)
			return SignatureCount{Signature: sig, Molecules: n}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out.([]SignatureCount), nil
}

//Personal.AI order the ending
