package junction

import (
	"context"
	"encoding/json"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Cache stores decompositions keyed by SMILES.  Implementations must be safe
// for concurrent use.  Cached trees carry no labels.
type Cache interface {
	Get(ctx context.Context, smiles string) (*Tree, bool)
	Put(ctx context.Context, smiles string, t *Tree)
}

// Key is the xxh3 hash of smiles.
func Key(smiles string) uint64 { return xxh3.HashString(smiles) }

// KeyString is Key in base 16, for string-keyed stores.
func KeyString(smiles string) string { return strconv.FormatUint(Key(smiles), 16) }

// EncodeTree serialises the cluster arena and edges of t with labels reset.
func EncodeTree(t *Tree) ([]byte, error) {
	c := unlabelled(t)
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode junction tree")
	}
	return data, nil
}

// DecodeTree restores a tree written by EncodeTree, re-parsing its molecule.
func DecodeTree(data []byte) (*Tree, error) {
	t := &Tree{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode junction tree")
	}
	mol, err := molecule.ParseSMILES(t.SMILES)
	if err != nil {
		return nil, err
	}
	for _, c := range t.Clusters {
		for _, a := range c.Atoms {
			if a < 0 || a >= mol.NumAtoms() {
				return nil, errors.New(errors.ErrCodeSerialization, "cached tree does not match its molecule")
			}
		}
	}
	t.Mol = mol
	return t, nil
}

func unlabelled(t *Tree) *Tree {
	c := t.Clone()
	for i := range c.Clusters {
		c.Clusters[i].Label = -1
	}
	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// LRU
// ─────────────────────────────────────────────────────────────────────────────

// LRUCache is an in-process Cache bounded by entry count.
type LRUCache struct {
	lru *lru.Cache[uint64, *Tree]
}

// NewLRUCache returns an LRUCache holding at most size trees.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[uint64, *Tree](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "lru cache size")
	}
	return &LRUCache{lru: c}, nil
}

func (c *LRUCache) Get(_ context.Context, smiles string) (*Tree, bool) {
	t, ok := c.lru.Get(Key(smiles))
	if !ok || t.SMILES != smiles {
		return nil, false
	}
	return t.Clone(), true
}

func (c *LRUCache) Put(_ context.Context, smiles string, t *Tree) {
	c.lru.Add(Key(smiles), unlabelled(t))
}

// Len returns the number of cached trees.
func (c *LRUCache) Len() int { return c.lru.Len() }

// ─────────────────────────────────────────────────────────────────────────────
// Tiered
// ─────────────────────────────────────────────────────────────────────────────

// TieredCache consults its tiers in order and back-fills faster tiers on a
// hit in a slower one.  Put writes through to every tier.
type TieredCache struct {
	tiers []Cache
}

// NewTieredCache returns a TieredCache over the non-nil tiers.
func NewTieredCache(tiers ...Cache) *TieredCache {
	tc := &TieredCache{}
	for _, t := range tiers {
		if t != nil {
			tc.tiers = append(tc.tiers, t)
		}
	}
	return tc
}

func (c *TieredCache) Get(ctx context.Context, smiles string) (*Tree, bool) {
	for i, tier := range c.tiers {
		t, ok := tier.Get(ctx, smiles)
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			c.tiers[j].Put(ctx, smiles, t)
		}
		return t, true
	}
	return nil, false
}

func (c *TieredCache) Put(ctx context.Context, smiles string, t *Tree) {
	for _, tier := range c.tiers {
		tier.Put(ctx, smiles, t)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Decomposer
// ─────────────────────────────────────────────────────────────────────────────

// Decomposer runs DecomposeSMILES through an optional cache.
type Decomposer struct {
	cache Cache
}

// NewDecomposer returns a Decomposer; cache may be nil.
func NewDecomposer(cache Cache) *Decomposer {
	return &Decomposer{cache: cache}
}

// Decompose returns the unlabelled junction tree of smiles.
func (d *Decomposer) Decompose(ctx context.Context, smiles string) (*Tree, error) {
	if d.cache != nil {
		if t, ok := d.cache.Get(ctx, smiles); ok {
			return t, nil
		}
	}
	t, err := DecomposeSMILES(smiles)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.Put(ctx, smiles, t)
	}
	return t, nil
}

//Personal.AI order the ending
