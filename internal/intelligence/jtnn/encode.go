package jtnn

import (
	"math/rand"
	"sort"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
)

// Encoding is the posterior of one molecule.  Log-variances are −|·| of
// their projections so the variance never exceeds 1.
type Encoding struct {
	TreeVec     *autograd.Tensor
	GraphVec    *autograd.Tensor
	TreeMean    *autograd.Tensor
	TreeLogVar  *autograd.Tensor
	GraphMean   *autograd.Tensor
	GraphLogVar *autograd.Tensor
}

// KL returns the KL divergence of both posterior halves from N(0, I).
func (e *Encoding) KL() *autograd.Tensor {
	return autograd.Add(
		autograd.KLDivergence(e.TreeMean, e.TreeLogVar),
		autograd.KLDivergence(e.GraphMean, e.GraphLogVar),
	)
}

// Latent is a sampled code together with the posterior it came from.
type Latent struct {
	*Encoding
	ZTree  *autograd.Tensor
	ZGraph *autograd.Tensor
}

// Vector returns the concatenated latent means as float32, tree half first.
func (e *Encoding) Vector() []float32 {
	out := make([]float32, 0, e.TreeMean.Len()+e.GraphMean.Len())
	for _, v := range e.TreeMean.Data {
		out = append(out, float32(v))
	}
	for _, v := range e.GraphMean.Data {
		out = append(out, float32(v))
	}
	return out
}

// Encode runs the graph and tree encoders on one example.
func (m *Model) Encode(item *corpus.Item) *Encoding {
	graphVec := m.graphMPN.encode(item.Graph, m.cfg.Depth)
	treeVec := m.encodeTree(item.Labels, item.Edges)
	return &Encoding{
		TreeVec:     treeVec,
		GraphVec:    graphVec,
		TreeMean:    autograd.Linear(m.treeMean, m.treeMeanB, treeVec),
		TreeLogVar:  autograd.NegAbs(autograd.Linear(m.treeVar, m.treeVarB, treeVec)),
		GraphMean:   autograd.Linear(m.graphMean, m.graphMeanB, graphVec),
		GraphLogVar: autograd.NegAbs(autograd.Linear(m.graphVar, m.graphVarB, graphVec)),
	}
}

// Sample draws z = mean + e^{logvar/2}⊙ε when train is set and returns the
// means otherwise.
func (m *Model) Sample(enc *Encoding, rng *rand.Rand, train bool) *Latent {
	if !train {
		return &Latent{Encoding: enc, ZTree: enc.TreeMean, ZGraph: enc.GraphMean}
	}
	return &Latent{
		Encoding: enc,
		ZTree:    reparameterize(enc.TreeMean, enc.TreeLogVar, rng),
		ZGraph:   reparameterize(enc.GraphMean, enc.GraphLogVar, rng),
	}
}

func reparameterize(mean, logvar *autograd.Tensor, rng *rand.Rand) *autograd.Tensor {
	eps := make([]float64, mean.Len())
	for i := range eps {
		eps[i] = rng.NormFloat64()
	}
	std := autograd.Exp(autograd.Scale(logvar, 0.5))
	return autograd.Add(mean, autograd.Mul(std, autograd.Vector(eps)))
}

// encodeTree runs Depth rounds of the tree GRU over directed tree edges,
// each round reading only the previous round's messages, then reads out
// ReLU(Wo·[x_root, Σ_k m_k,root]).
func (m *Model) encodeTree(labels []int, edges [][2]int) *autograd.Tensor {
	x := make([]*autograd.Tensor, len(labels))
	for i, l := range labels {
		x[i] = autograd.Row(m.embedding, l)
	}
	adj := adjacency(len(labels), edges)

	type dedge struct{ from, to int }
	var directed []dedge
	for i, nbrs := range adj {
		for _, j := range nbrs {
			directed = append(directed, dedge{i, j})
		}
	}

	msgs := map[dedge]*autograd.Tensor{}
	for round := 0; round < m.cfg.Depth; round++ {
		next := make(map[dedge]*autograd.Tensor, len(directed))
		for _, e := range directed {
			var in []*autograd.Tensor
			for _, k := range adj[e.from] {
				if h, ok := msgs[dedge{k, e.from}]; ok && k != e.to {
					in = append(in, h)
				}
			}
			next[e] = m.treeGRU.step(x[e.from], in)
		}
		msgs = next
	}

	var in []*autograd.Tensor
	for _, k := range adj[0] {
		in = append(in, msgs[dedge{k, 0}])
	}
	h := m.cfg.HiddenSize
	return autograd.ReLU(autograd.Linear(m.treeWo, m.treeBo, autograd.Concat(x[0], autograd.Sum(h, in...))))
}

func adjacency(n int, edges [][2]int) [][]int {
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	for _, nbrs := range adj {
		sort.Ints(nbrs)
	}
	return adj
}

//Personal.AI order the ending
