// Package vocabulary maps cluster signatures to dense integer labels.  A
// Vocabulary is built once in fitting mode, frozen, and then shared
// read-only by every loader worker.
package vocabulary

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// FormatVersion is written into every serialised vocabulary.
const FormatVersion = 1

// Mode is the lifecycle state of a Vocabulary.
type Mode int

const (
	Fitting Mode = iota
	Frozen
)

func (m Mode) String() string {
	if m == Frozen {
		return "frozen"
	}
	return "fitting"
}

// Store is the subset of the artifact store the vocabulary persists through.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Vocabulary is the signature ↔ label table.  Indices are assigned in
// insertion order and never change.
type Vocabulary struct {
	mu      sync.RWMutex
	index   map[string]int
	entries []*Template
	mode    Mode
}

// New returns an empty Vocabulary in fitting mode.
func New() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// Add returns the index of signature, assigning the next one on first sight.
// It fails with CodeVocabularyFrozen once the vocabulary is frozen and the
// signature is new.
func (v *Vocabulary) Add(signature string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addLocked(signature)
}

func (v *Vocabulary) addLocked(signature string) (int, error) {
	if i, ok := v.index[signature]; ok {
		return i, nil
	}
	if v.mode == Frozen {
		return -1, errors.New(errors.CodeVocabularyFrozen, "vocabulary is frozen").WithDetail(signature)
	}
	tmpl, err := NewTemplate(signature)
	if err != nil {
		return -1, errors.Wrap(err, errors.CodeDecomposition, "cluster signature does not parse")
	}
	i := len(v.entries)
	v.index[signature] = i
	v.entries = append(v.entries, tmpl)
	return i, nil
}

// Fit merges per-molecule signature lists in order.  Calling Fit on the
// same input in the same order always yields the same indices.
func (v *Vocabulary) Fit(trees [][]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, sigs := range trees {
		for _, s := range sigs {
			if _, err := v.addLocked(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the index of signature.  While fitting an unseen signature
// is added; once frozen it yields CodeUnknownCluster.
func (v *Vocabulary) Lookup(signature string) (int, error) {
	v.mu.RLock()
	i, ok := v.index[signature]
	frozen := v.mode == Frozen
	v.mu.RUnlock()
	if ok {
		return i, nil
	}
	if frozen {
		return -1, errors.UnknownCluster(signature)
	}
	return v.Add(signature)
}

// Label sets the label of every cluster in tree.  On failure tree is left
// unchanged.
func (v *Vocabulary) Label(tree *junction.Tree) error {
	labels := make([]int, len(tree.Clusters))
	for i, c := range tree.Clusters {
		l, err := v.Lookup(c.Signature)
		if err != nil {
			return err
		}
		labels[i] = l
	}
	for i := range tree.Clusters {
		tree.Clusters[i].Label = labels[i]
	}
	return nil
}

// Signature returns the signature at idx, or "" when out of range.
func (v *Vocabulary) Signature(idx int) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if idx < 0 || idx >= len(v.entries) {
		return ""
	}
	return v.entries[idx].Signature
}

// Template returns the template at idx, or nil when out of range.
func (v *Vocabulary) Template(idx int) *Template {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if idx < 0 || idx >= len(v.entries) {
		return nil
	}
	return v.entries[idx]
}

// Signatures returns every signature in index order.
func (v *Vocabulary) Signatures() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.Signature
	}
	return out
}

// Size returns the number of entries.
func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Freeze switches to frozen mode.  It cannot be undone.
func (v *Vocabulary) Freeze() {
	v.mu.Lock()
	v.mode = Frozen
	v.mu.Unlock()
}

// Frozen reports whether the vocabulary is frozen.
func (v *Vocabulary) Frozen() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode == Frozen
}

// Mode returns the lifecycle state.
func (v *Vocabulary) Mode() Mode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────────────────────

type entryJSON struct {
	Index int `json:"index"`
	Template
}

type vocabJSON struct {
	Version int         `json:"version"`
	Entries []entryJSON `json:"entries"`
}

func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := vocabJSON{Version: FormatVersion, Entries: make([]entryJSON, len(v.entries))}
	for i, e := range v.entries {
		out.Entries[i] = entryJSON{Index: i, Template: *e}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a vocabulary.  The result is frozen.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var in vocabJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode vocabulary")
	}
	if in.Version != FormatVersion {
		return errors.Newf(errors.ErrCodeSerialization, "unsupported vocabulary version %d", in.Version)
	}

	index := make(map[string]int, len(in.Entries))
	entries := make([]*Template, len(in.Entries))
	for i, e := range in.Entries {
		if e.Index != i {
			return errors.Newf(errors.ErrCodeSerialization, "vocabulary entry %d has index %d", i, e.Index)
		}
		if _, dup := index[e.Signature]; dup {
			return errors.Newf(errors.ErrCodeSerialization, "duplicate vocabulary signature %q", e.Signature)
		}
		tmpl, err := NewTemplate(e.Signature)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "vocabulary signature does not parse")
		}
		if len(tmpl.Atoms) != len(e.Atoms) || len(tmpl.Bonds) != len(e.Bonds) {
			return errors.Newf(errors.ErrCodeSerialization, "vocabulary entry %d template disagrees with its signature", i)
		}
		index[e.Signature] = i
		entries[i] = tmpl
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.index = index
	v.entries = entries
	v.mode = Frozen
	return nil
}

// Save writes the vocabulary as JSON under key.
func (v *Vocabulary) Save(ctx context.Context, store Store, key string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode vocabulary")
	}
	if err := store.Put(ctx, key, data); err != nil {
		return errors.CheckpointIO(err, "save vocabulary").WithDetail(key)
	}
	return nil
}

// Load reads a vocabulary written by Save.  The result is frozen.
func Load(ctx context.Context, store Store, key string) (*Vocabulary, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	v := New()
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

//Personal.AI order the ending
