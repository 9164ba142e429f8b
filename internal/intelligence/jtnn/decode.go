package jtnn

import (
	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
)

// DecodeStrategy selects how the decoder walks the tree.
type DecodeStrategy interface {
	decode(m *Model, item *corpus.Item, z *Latent) (*DecodeResult, error)
}

// TeacherForcing replays the canonical DFS order of the target tree and
// scores every decision against it.
type TeacherForcing struct{}

// Greedy decodes freely from the latent code, taking the argmax label at
// every expansion and stopping when p(expand) < 0.5.  MaxNodes caps the tree
// size; zero uses the model's MaxDecodeNodes.
type Greedy struct {
	MaxNodes int
}

// DecodeResult carries the losses and counters of one decode.  Loss terms
// are scalars; terms that do not apply are constant zero.
type DecodeResult struct {
	Word   *autograd.Tensor
	Topo   *autograd.Tensor
	Assm   *autograd.Tensor
	Stereo *autograd.Tensor

	WordCorrect, WordTotal int
	TopoCorrect, TopoTotal int
	AssmCorrect, AssmTotal int
	AssmMismatch           bool

	// Set by Greedy.
	Labels   []int
	Edges    [][2]int
	Molecule *molecule.Molecule
	SMILES   string
	Skipped  int
}

// Loss returns word + topo + assm + stereo.
func (r *DecodeResult) Loss() *autograd.Tensor {
	return autograd.Sum(1, r.Word, r.Topo, r.Assm, r.Stereo)
}

// Decode runs the decoder under strategy.
func (m *Model) Decode(strategy DecodeStrategy, item *corpus.Item, z *Latent) (*DecodeResult, error) {
	return strategy.decode(m, item, z)
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared heads
// ─────────────────────────────────────────────────────────────────────────────

// topoLogit scores expanding from a node with input x and incoming
// messages in: u·ReLU(W[x, Σ h, z_tree]).
func (m *Model) topoLogit(x *autograd.Tensor, in []*autograd.Tensor, zTree *autograd.Tensor) *autograd.Tensor {
	ctx := autograd.Concat(x, autograd.Sum(m.cfg.HiddenSize, in...), zTree)
	return autograd.Linear(m.topoU, m.topoUB, autograd.ReLU(autograd.Linear(m.topoW, m.topoB, ctx)))
}

// wordLogits scores every label for the node a message h points to.
func (m *Model) wordLogits(h, zTree *autograd.Tensor) *autograd.Tensor {
	hidden := autograd.ReLU(autograd.Linear(m.wordW, m.wordB, autograd.Concat(h, zTree)))
	return autograd.Linear(m.wordU, m.wordUB, hidden)
}

type edgeKey struct{ from, to int }

// messageStore holds decoder messages h_ij keyed by direction.
type messageStore struct {
	msgs map[edgeKey]*autograd.Tensor
	into map[int][]int
}

func newMessageStore() *messageStore {
	return &messageStore{msgs: map[edgeKey]*autograd.Tensor{}, into: map[int][]int{}}
}

func (s *messageStore) put(from, to int, h *autograd.Tensor) {
	s.msgs[edgeKey{from, to}] = h
	s.into[to] = append(s.into[to], from)
}

// incoming returns the messages already sent into node, except from skip.
func (s *messageStore) incoming(node, skip int) []*autograd.Tensor {
	var out []*autograd.Tensor
	for _, k := range s.into[node] {
		if k != skip {
			out = append(out, s.msgs[edgeKey{k, node}])
		}
	}
	return out
}

func zero() *autograd.Tensor { return autograd.Scalar(0) }

func sumOrZero(ts []*autograd.Tensor) *autograd.Tensor {
	if len(ts) == 0 {
		return zero()
	}
	return autograd.Sum(1, ts...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Teacher forcing
// ─────────────────────────────────────────────────────────────────────────────

func (TeacherForcing) decode(m *Model, item *corpus.Item, z *Latent) (*DecodeResult, error) {
	res := &DecodeResult{}
	var words, topos []*autograd.Tensor
	x := func(node int) *autograd.Tensor { return autograd.Row(m.embedding, item.Labels[node]) }

	rootLogits := m.wordLogits(autograd.Zeros(m.cfg.HiddenSize), z.ZTree)
	words = append(words, autograd.SoftmaxCrossEntropy(rootLogits, item.Labels[0]))
	res.countWord(rootLogits, item.Labels[0])

	store := newMessageStore()
	for _, s := range item.Order {
		in := store.incoming(s.From, -1)
		logit := m.topoLogit(x(s.From), in, z.ZTree)
		topos = append(topos, autograd.BCEWithLogits(logit, boolTarget(s.Expand)))
		res.countTopo(logit, s.Expand)

		h := m.decGRU.step(x(s.From), store.incoming(s.From, s.To))
		store.put(s.From, s.To, h)
		if s.Expand {
			logits := m.wordLogits(h, z.ZTree)
			words = append(words, autograd.SoftmaxCrossEntropy(logits, item.Labels[s.To]))
			res.countWord(logits, item.Labels[s.To])
		}
	}

	// Final stop decision at the root.
	logit := m.topoLogit(x(0), store.incoming(0, -1), z.ZTree)
	topos = append(topos, autograd.BCEWithLogits(logit, 0))
	res.countTopo(logit, false)

	res.Word = sumOrZero(words)
	res.Topo = sumOrZero(topos)
	res.Assm = m.assemblyLoss(item, z, res)
	res.Stereo = m.stereoLoss(item, z)
	return res, nil
}

func boolTarget(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (r *DecodeResult) countWord(logits *autograd.Tensor, target int) {
	r.WordTotal++
	if autograd.Argmax(logits) == target {
		r.WordCorrect++
	}
}

func (r *DecodeResult) countTopo(logit *autograd.Tensor, expand bool) {
	r.TopoTotal++
	if (logit.Value() >= 0) == expand {
		r.TopoCorrect++
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Greedy
// ─────────────────────────────────────────────────────────────────────────────

func (g Greedy) decode(m *Model, _ *corpus.Item, z *Latent) (*DecodeResult, error) {
	maxNodes := g.MaxNodes
	if maxNodes <= 0 {
		maxNodes = m.cfg.MaxDecodeNodes
	}
	if maxNodes <= 0 {
		maxNodes = 1
	}

	labels := []int{autograd.Argmax(m.wordLogits(autograd.Zeros(m.cfg.HiddenSize), z.ZTree))}
	parent := []int{-1}
	var edges [][2]int
	x := func(node int) *autograd.Tensor { return autograd.Row(m.embedding, labels[node]) }

	store := newMessageStore()
	cur := 0
	for steps := 0; steps < 2*maxNodes; steps++ {
		in := store.incoming(cur, -1)
		expand := m.topoLogit(x(cur), in, z.ZTree).Value() >= 0
		if expand && len(labels) < maxNodes {
			h := m.decGRU.step(x(cur), in)
			child := len(labels)
			labels = append(labels, autograd.Argmax(m.wordLogits(h, z.ZTree)))
			parent = append(parent, cur)
			edges = append(edges, [2]int{cur, child})
			store.put(cur, child, h)
			cur = child
			continue
		}
		if cur == 0 {
			break
		}
		p := parent[cur]
		store.put(cur, p, m.decGRU.step(x(cur), store.incoming(cur, p)))
		cur = p
	}

	mol, skipped, err := m.realize(labels, parent, z)
	if err != nil {
		return nil, err
	}
	return &DecodeResult{
		Word: zero(), Topo: zero(), Assm: zero(), Stereo: zero(),
		Labels:   labels,
		Edges:    edges,
		Molecule: mol,
		SMILES:   molecule.CanonicalSMILES(mol),
		Skipped:  skipped,
	}, nil
}

//Personal.AI order the ending
