package milvus

import (
	"context"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/KeyIP-JTNN/internal/application/encoding"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Field names of the latent collection.
const (
	FieldID     = "id"
	FieldSMILES = "smiles"
	FieldLatent = "latent"

	maxSMILESLength = 2048
	hnswM           = 8
	hnswEfBuild     = 200
	hnswEfSearch    = 64
)

// Hit is one nearest-neighbour match.
type Hit struct {
	ID     int64   `json:"id"`
	SMILES string  `json:"smiles"`
	Score  float32 `json:"score"`
}

// LatentIndex stores molecule latent vectors in one collection.
type LatentIndex struct {
	mc         client.Client
	collection string
	dim        int
	logger     logging.Logger
}

// NewLatentIndex binds a collection of dim-wide vectors.
func NewLatentIndex(c *Client, collection string, dim int) (*LatentIndex, error) {
	if c == nil {
		return nil, errors.InvalidParam("milvus client is required")
	}
	if collection == "" {
		return nil, errors.InvalidParam("collection name is required")
	}
	if dim <= 0 {
		return nil, errors.InvalidParam("latent dimension must be positive")
	}
	return &LatentIndex{
		mc:         c.SDK(),
		collection: collection,
		dim:        dim,
		logger:     c.logger.With(logging.String("collection", collection)),
	}, nil
}

// Schema returns the collection schema.
func (x *LatentIndex) Schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: x.collection,
		Description:    "junction-tree VAE latent vectors",
		Fields: []*entity.Field{
			{Name: FieldID, DataType: entity.FieldTypeInt64, PrimaryKey: true},
			{Name: FieldSMILES, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": strconv.Itoa(maxSMILESLength)}},
			{Name: FieldLatent, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": strconv.Itoa(x.dim)}},
		},
	}
}

// EnsureCollection creates and indexes the collection if absent, then loads it.
func (x *LatentIndex) EnsureCollection(ctx context.Context) error {
	has, err := x.mc.HasCollection(ctx, x.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check collection")
	}
	if !has {
		if err := x.mc.CreateCollection(ctx, x.Schema(), 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create collection")
		}
		idx, err := entity.NewIndexHNSW(entity.L2, hnswM, hnswEfBuild)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build index params")
		}
		if err := x.mc.CreateIndex(ctx, x.collection, FieldLatent, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create index")
		}
		x.logger.Info("Collection created", logging.Int("dim", x.dim))
	}
	if err := x.mc.LoadCollection(ctx, x.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to load collection")
	}
	return nil
}

// Upsert writes records keyed by the hash of their SMILES.
func (x *LatentIndex) Upsert(ctx context.Context, records []encoding.Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	smiles := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		if len(r.Vector) != x.dim {
			return errors.InvalidParam("vector dimension mismatch").
				WithDetail(r.SMILES + ": got " + strconv.Itoa(len(r.Vector)) + ", want " + strconv.Itoa(x.dim))
		}
		ids[i] = int64(junction.Key(r.SMILES))
		smiles[i] = r.SMILES
		vectors[i] = r.Vector
	}
	_, err := x.mc.Upsert(ctx, x.collection, "",
		entity.NewColumnInt64(FieldID, ids),
		entity.NewColumnVarChar(FieldSMILES, smiles),
		entity.NewColumnFloatVector(FieldLatent, x.dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to upsert latent vectors")
	}
	x.logger.Debug("Latent vectors upserted", logging.Int("count", len(records)))
	return nil
}

// Search returns the topK closest molecules to vector.
func (x *LatentIndex) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if len(vector) != x.dim {
		return nil, errors.InvalidParam("query dimension mismatch")
	}
	if topK <= 0 {
		return nil, errors.InvalidParam("topK must be positive")
	}
	sp, err := entity.NewIndexHNSWSearchParam(hnswEfSearch)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build search params")
	}
	results, err := x.mc.Search(ctx, x.collection, nil, "", []string{FieldSMILES},
		[]entity.Vector{entity.FloatVector(vector)}, FieldLatent, entity.L2, topK, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "latent search failed")
	}
	var hits []Hit
	for _, res := range results {
		var names *entity.ColumnVarChar
		if col := res.Fields.GetColumn(FieldSMILES); col != nil {
			names, _ = col.(*entity.ColumnVarChar)
		}
		for i := 0; i < res.ResultCount; i++ {
			h := Hit{}
			if res.IDs != nil {
				h.ID, _ = res.IDs.GetAsInt64(i)
			}
			if i < len(res.Scores) {
				h.Score = res.Scores[i]
			}
			if names != nil {
				h.SMILES, _ = names.ValueByIdx(i)
			}
			hits = append(hits, h)
		}
	}
	return hits, nil
}

var _ encoding.Index = (*LatentIndex)(nil)

//Personal.AI order the ending
