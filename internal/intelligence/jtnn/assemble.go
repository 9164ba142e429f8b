package jtnn

import (
	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/molecule"
	"github.com/turtacn/KeyIP-JTNN/internal/intelligence/autograd"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// assemblyScores returns assemblyMPN(c)·(A·z_graph) for every candidate.
func (m *Model) assemblyScores(cands []molecule.FeatureGraph, zGraph *autograd.Tensor) *autograd.Tensor {
	query := autograd.MatVec(m.assmA, zGraph)
	scores := make([]*autograd.Tensor, len(cands))
	for i, c := range cands {
		scores[i] = autograd.Dot(m.assmMPN.encode(c, m.cfg.Depth), query)
	}
	return autograd.Stack(scores...)
}

// assemblyLoss is the softmax cross-entropy of the true attachment over the
// candidates of every non-root node.  Single-candidate nodes contribute
// nothing; an example with an unreproducible target contributes nothing.
func (m *Model) assemblyLoss(item *corpus.Item, z *Latent, res *DecodeResult) *autograd.Tensor {
	if item.AssemblyMismatch {
		res.AssmMismatch = true
		return zero()
	}
	var terms []*autograd.Tensor
	for _, a := range item.Assembly {
		if len(a.Candidates) < 2 || a.Target < 0 {
			continue
		}
		logits := m.assemblyScores(a.Candidates, z.ZGraph)
		terms = append(terms, autograd.SoftmaxCrossEntropy(logits, a.Target))
		res.AssmTotal++
		if autograd.Argmax(logits) == a.Target {
			res.AssmCorrect++
		}
	}
	return sumOrZero(terms)
}

// stereoScores returns graphMPN(c)·(S·z_graph) for every candidate.
func (m *Model) stereoScores(cands []molecule.FeatureGraph, zGraph *autograd.Tensor) *autograd.Tensor {
	query := autograd.MatVec(m.stereoS, zGraph)
	scores := make([]*autograd.Tensor, len(cands))
	for i, c := range cands {
		scores[i] = autograd.Dot(m.graphMPN.encode(c, m.cfg.Depth), query)
	}
	return autograd.Stack(scores...)
}

// stereoLoss scores the observed stereoisomer, always candidate 0, against
// its flipped variants.
func (m *Model) stereoLoss(item *corpus.Item, z *Latent) *autograd.Tensor {
	if len(item.Stereo) < 2 {
		return zero()
	}
	return autograd.SoftmaxCrossEntropy(m.stereoScores(item.Stereo, z.ZGraph), 0)
}

// realize attaches templates in creation order, which is DFS pre-order,
// picking the best-scoring valence-valid attachment onto the parent's atoms.
// A child without any valid attachment is skipped with its subtree.
func (m *Model) realize(labels, parent []int, z *Latent) (*molecule.Molecule, int, error) {
	root := m.vocab.Template(labels[0])
	if root == nil {
		return nil, 0, errors.UnknownCluster("label out of range")
	}
	mol := root.Molecule()
	atomsOf := make([][]int, len(labels))
	atomsOf[0] = make([]int, mol.NumAtoms())
	for i := range atomsOf[0] {
		atomsOf[0][i] = i
	}

	skipped := 0
	dropped := make([]bool, len(labels))
	for node := 1; node < len(labels); node++ {
		p := parent[node]
		tmpl := m.vocab.Template(labels[node])
		if dropped[p] || tmpl == nil {
			dropped[node] = true
			skipped++
			continue
		}
		atts := junction.Attachments(mol, atomsOf[p], tmpl.Molecule(), m.cfg.MaxCandidates)
		if len(atts) == 0 {
			dropped[node] = true
			skipped++
			continue
		}
		best := 0
		if len(atts) > 1 {
			cands := make([]molecule.FeatureGraph, len(atts))
			for i, a := range atts {
				cands[i] = molecule.Featurize(a.Local)
			}
			best = autograd.Argmax(m.assemblyScores(cands, z.ZGraph))
		}
		mol = atts[best].Graph
		atomsOf[node] = atts[best].Mapping
	}

	if isomers := molecule.StereoIsomers(mol, m.cfg.MaxStereo); len(isomers) > 1 {
		cands := make([]molecule.FeatureGraph, len(isomers))
		for i, iso := range isomers {
			cands[i] = molecule.Featurize(iso)
		}
		mol = isomers[autograd.Argmax(m.stereoScores(cands, z.ZGraph))]
	}
	return mol, skipped, nil
}

//Personal.AI order the ending
