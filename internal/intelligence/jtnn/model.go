// Package jtnn implements the junction-tree variational autoencoder: a graph
// message passing encoder and a tree GRU encoder sharing one latent space, a
// tree decoder driven by a DecodeStrategy, and assembly and stereo scorers
// that realise the decoded tree as a molecule.
package jtnn

import (
	"math/rand"

	"github.com/turtacn/KeyIP-JTNN/internal/config"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// Config is the network shape.
type Config struct {
	HiddenSize     int `json:"hidden_size"`
	LatentSize     int `json:"latent_size"`
	Depth          int `json:"depth"`
	MaxDecodeNodes int `json:"max_decode_nodes"`
	MaxCandidates  int `json:"max_candidates"`
	MaxStereo      int `json:"max_stereo"`
}

// ConfigFrom converts the model section of the application config.
func ConfigFrom(c config.ModelConfig) Config {
	return Config{
		HiddenSize:     c.HiddenSize,
		LatentSize:     c.LatentSize,
		Depth:          c.Depth,
		MaxDecodeNodes: c.MaxDecodeNodes,
		MaxCandidates:  c.MaxCandidates,
		MaxStereo:      c.MaxStereoIsomers,
	}
}

// Validate checks the shape.
func (c Config) Validate() error {
	switch {
	case c.HiddenSize < 1:
		return errors.Newf(errors.ErrCodeModelConfig, "hidden size must be ≥ 1, got %d", c.HiddenSize)
	case c.LatentSize < 2 || c.LatentSize%2 != 0:
		return errors.Newf(errors.ErrCodeModelConfig, "latent size must be a positive even number, got %d", c.LatentSize)
	case c.Depth < 1:
		return errors.Newf(errors.ErrCodeModelConfig, "depth must be ≥ 1, got %d", c.Depth)
	}
	return nil
}

func (c Config) half() int { return c.LatentSize / 2 }

// Model holds every trainable tensor of the autoencoder.
type Model struct {
	cfg    Config
	vocab  *vocabulary.Vocabulary
	params *autograd.ParamSet

	embedding *autograd.Tensor // [V × H], shared by tree encoder and decoder

	graphMPN *mpn
	assmMPN  *mpn
	treeGRU  *gru
	treeWo   *autograd.Tensor
	treeBo   *autograd.Tensor

	treeMean, treeMeanB   *autograd.Tensor
	treeVar, treeVarB     *autograd.Tensor
	graphMean, graphMeanB *autograd.Tensor
	graphVar, graphVarB   *autograd.Tensor

	decGRU        *gru
	topoW, topoB  *autograd.Tensor
	topoU, topoUB *autograd.Tensor
	wordW, wordB  *autograd.Tensor
	wordU, wordUB *autograd.Tensor
	assmA         *autograd.Tensor
	stereoS       *autograd.Tensor
}

// NewModel registers the parameters of a model over vocab.  Parameters start
// at zero; call Init or LoadParameters before use.
func NewModel(cfg Config, vocab *vocabulary.Vocabulary) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if vocab == nil || vocab.Size() == 0 {
		return nil, errors.New(errors.ErrCodeModelConfig, "model needs a non-empty vocabulary")
	}
	h, z, v := cfg.HiddenSize, cfg.half(), vocab.Size()
	ps := autograd.NewParamSet()
	m := &Model{cfg: cfg, vocab: vocab, params: ps}

	m.embedding = ps.Add("embedding", v, h)

	m.graphMPN = newMPN(ps, "graph", h)
	m.treeGRU = newGRU(ps, "tree.gru", h, h)
	m.treeWo = ps.Add("tree.wo", h, 2*h)
	m.treeBo = ps.Add("tree.bo", h)

	m.treeMean, m.treeMeanB = ps.Add("latent.tree_mean.w", z, h), ps.Add("latent.tree_mean.b", z)
	m.treeVar, m.treeVarB = ps.Add("latent.tree_var.w", z, h), ps.Add("latent.tree_var.b", z)
	m.graphMean, m.graphMeanB = ps.Add("latent.graph_mean.w", z, h), ps.Add("latent.graph_mean.b", z)
	m.graphVar, m.graphVarB = ps.Add("latent.graph_var.w", z, h), ps.Add("latent.graph_var.b", z)

	m.decGRU = newGRU(ps, "decoder.gru", h, h)
	m.topoW, m.topoB = ps.Add("decoder.topo.w", h, 2*h+z), ps.Add("decoder.topo.b", h)
	m.topoU, m.topoUB = ps.Add("decoder.topo.u", 1, h), ps.Add("decoder.topo.ub", 1)
	m.wordW, m.wordB = ps.Add("decoder.word.w", h, h+z), ps.Add("decoder.word.b", h)
	m.wordU, m.wordUB = ps.Add("decoder.word.u", v, h), ps.Add("decoder.word.ub", v)

	m.assmMPN = newMPN(ps, "assm", h)
	m.assmA = ps.Add("assm.a", h, z)
	m.stereoS = ps.Add("stereo.s", h, z)
	return m, nil
}

// Config returns the model shape.
func (m *Model) Config() Config { return m.cfg }

// Vocabulary returns the label space.
func (m *Model) Vocabulary() *vocabulary.Vocabulary { return m.vocab }

// Parameters returns the trainable tensors.
func (m *Model) Parameters() *autograd.ParamSet { return m.params }

// LoadParameters overwrites every parameter from values.
func (m *Model) LoadParameters(values map[string][]float64) error {
	return m.params.Load(values)
}

// Init zeroes 1-D parameters and draws matrices Xavier-normal from rng.
func (m *Model) Init(rng *rand.Rand) { m.params.InitXavier(rng) }

// ─────────────────────────────────────────────────────────────────────────────
// Building blocks
// ─────────────────────────────────────────────────────────────────────────────

// gru is the tree GRU cell: it merges the messages flowing into a node with
// the node's own input into the message it sends onward.
type gru struct {
	hidden     int
	wz, bz     *autograd.Tensor
	wr, ur, br *autograd.Tensor
	wh, bh     *autograd.Tensor
}

func newGRU(ps *autograd.ParamSet, prefix string, in, hidden int) *gru {
	return &gru{
		hidden: hidden,
		wz:     ps.Add(prefix+".wz", hidden, in+hidden),
		bz:     ps.Add(prefix+".bz", hidden),
		wr:     ps.Add(prefix+".wr", hidden, in),
		ur:     ps.Add(prefix+".ur", hidden, hidden),
		br:     ps.Add(prefix+".br", hidden),
		wh:     ps.Add(prefix+".wh", hidden, in+hidden),
		bh:     ps.Add(prefix+".bh", hidden),
	}
}

// step computes z = σ(Wz[x, s]), r_k = σ(Wr x + Ur h_k), m̃ = tanh(Wh[x, Σ r_k⊙h_k])
// and returns (1−z)⊙s + z⊙m̃ where s = Σ h_k.
func (g *gru) step(x *autograd.Tensor, hs []*autograd.Tensor) *autograd.Tensor {
	s := autograd.Sum(g.hidden, hs...)
	z := autograd.Sigmoid(autograd.Linear(g.wz, g.bz, autograd.Concat(x, s)))
	rx := autograd.MatVec(g.wr, x)
	gated := make([]*autograd.Tensor, len(hs))
	for k, h := range hs {
		r := autograd.Sigmoid(autograd.Add(autograd.Add(rx, autograd.MatVec(g.ur, h)), g.br))
		gated[k] = autograd.Mul(r, h)
	}
	cand := autograd.Tanh(autograd.Linear(g.wh, g.bh, autograd.Concat(x, autograd.Sum(g.hidden, gated...))))
	return autograd.Add(autograd.Mul(autograd.OneMinus(z), s), autograd.Mul(z, cand))
}

// mpn is a message passing network over directed bonds.
type mpn struct {
	hidden int
	wi     *autograd.Tensor
	wh     *autograd.Tensor
	wo, bo *autograd.Tensor
}

func newMPN(ps *autograd.ParamSet, prefix string, hidden int) *mpn {
	return &mpn{
		hidden: hidden,
		wi:     ps.Add(prefix+".mpn.wi", hidden, molecule.AtomFDim+molecule.BondFDim),
		wh:     ps.Add(prefix+".mpn.wh", hidden, hidden),
		wo:     ps.Add(prefix+".mpn.wo", hidden, molecule.AtomFDim+hidden),
		bo:     ps.Add(prefix+".mpn.bo", hidden),
	}
}

// encode runs depth rounds of
//
//	m_uv ← ReLU(Wi·[x_u, x_uv] + Wh·Σ_{w∈N(u)\v} m_wu)
//
// then reads out h_v = ReLU(Wo·[x_v, Σ_u m_uv]) and mean-pools over atoms.
func (n *mpn) encode(g molecule.FeatureGraph, depth int) *autograd.Tensor {
	atoms := make([]*autograd.Tensor, g.NumAtoms())
	for i, f := range g.Atoms {
		atoms[i] = autograd.Vector(f)
	}

	// Directed edge 2b runs Begin→End, 2b+1 End→Begin.
	ne := 2 * g.NumBonds()
	src, dst := make([]int, ne), make([]int, ne)
	input := make([]*autograd.Tensor, ne)
	incoming := make([][]int, g.NumAtoms())
	for b, pair := range g.Bonds {
		bf := autograd.Vector(g.BondFeats[b])
		for k, e := range [2]int{2 * b, 2*b + 1} {
			u, v := pair[k], pair[1-k]
			src[e], dst[e] = u, v
			input[e] = autograd.MatVec(n.wi, autograd.Concat(atoms[u], bf))
			incoming[v] = append(incoming[v], e)
		}
	}

	msg := make([]*autograd.Tensor, ne)
	for t := 0; t < depth; t++ {
		next := make([]*autograd.Tensor, ne)
		for e := 0; e < ne; e++ {
			if t == 0 {
				next[e] = autograd.ReLU(input[e])
				continue
			}
			var nei []*autograd.Tensor
			for _, f := range incoming[src[e]] {
				if src[f] != dst[e] {
					nei = append(nei, msg[f])
				}
			}
			next[e] = autograd.ReLU(autograd.Add(input[e], autograd.MatVec(n.wh, autograd.Sum(n.hidden, nei...))))
		}
		msg = next
	}

	hs := make([]*autograd.Tensor, len(atoms))
	for v, x := range atoms {
		in := make([]*autograd.Tensor, len(incoming[v]))
		for k, e := range incoming[v] {
			in[k] = msg[e]
		}
		hs[v] = autograd.ReLU(autograd.Linear(n.wo, n.bo, autograd.Concat(x, autograd.Sum(n.hidden, in...))))
	}
	return autograd.Mean(hs...)
}

//Personal.AI order the ending
