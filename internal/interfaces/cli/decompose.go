package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/domain/junction"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// DecomposeResult is the junction tree of one input.
type DecomposeResult struct {
	SMILES     string   `json:"smiles"`
	Clusters   []string `json:"clusters,omitempty"`
	Kinds      []string `json:"kinds,omitempty"`
	Edges      [][2]int `json:"edges,omitempty"`
	Error      string   `json:"error,omitempty"`
	NumCluster int      `json:"num_clusters"`
}

// DecomposeResults renders as a table.
type DecomposeResults []DecomposeResult

func (r DecomposeResults) TableHeaders() []string {
	return []string{"SMILES", "CLUSTERS", "EDGES", "SIGNATURES"}
}

func (r DecomposeResults) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, d := range r {
		if d.Error != "" {
			rows = append(rows, []string{d.SMILES, "-", "-", "error: " + d.Error})
			continue
		}
		rows = append(rows, []string{
			d.SMILES,
			strconv.Itoa(d.NumCluster),
			strconv.Itoa(len(d.Edges)),
			strings.Join(d.Clusters, " "),
		})
	}
	return rows
}

// NewDecomposeCmd decomposes molecules into junction trees.
func NewDecomposeCmd() *cobra.Command {
	var (
		dataPath string
		toGraph  bool
	)
	cmd := &cobra.Command{
		Use:   "decompose [SMILES...]",
		Short: "Print the junction tree of each molecule",
		Example: `  jtnn decompose 'c1ccccc1CC(=O)O'
  jtnn decompose --data molecules.csv -o json
  jtnn decompose --data molecules.csv --graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			inputs := args
			if dataPath != "" {
				more, err := readDataset(dataPath, cc.Config.Paths.SMILESColumn)
				if err != nil {
					return err
				}
				inputs = append(inputs, more...)
			}
			if len(inputs) == 0 {
				return errors.InvalidParam("no molecules given: pass SMILES arguments or --data")
			}

			cache, err := junction.NewLRUCache(cc.Config.Cache.LRUSize)
			if err != nil {
				return err
			}
			var cl closers
			defer cl.closeAll(cc.Logger)
			var graph *neo4j.TreeGraph
			if toGraph {
				if graph, err = openTreeGraph(cmd.Context(), cc.Config, cc.Logger, &cl); err != nil {
					return err
				}
			}
			dec := junction.NewDecomposer(cache)
			out := make(DecomposeResults, 0, len(inputs))
			failed := 0
			for _, s := range inputs {
				r := DecomposeResult{SMILES: s}
				t, err := dec.Decompose(cmd.Context(), s)
				if err != nil {
					r.Error = err.Error()
					failed++
					cc.Logger.Debug("Decomposition failed", logging.String(logging.FieldSMILES, s), logging.Err(err))
				} else {
					r.Clusters = t.Signatures()
					r.Edges = t.Edges
					r.NumCluster = t.NumNodes()
					for _, c := range t.Clusters {
						r.Kinds = append(r.Kinds, c.Kind.String())
					}
					if graph != nil {
						if err := graph.Save(cmd.Context(), t); err != nil {
							return err
						}
					}
				}
				out = append(out, r)
			}
			cc.Logger.Info("Decomposition finished", logging.Int("molecules", len(inputs)), logging.Int("failed", failed))
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "SMILES file (one per line or CSV), '-' for stdin")
	cmd.Flags().BoolVar(&toGraph, "graph", false, "store each tree in the Neo4j tree graph")
	return cmd
}

//Personal.AI order the ending
