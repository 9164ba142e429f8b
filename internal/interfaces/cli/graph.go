package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/database/neo4j"
)

// SignatureCounts renders shared cluster signatures as a table.
type SignatureCounts []neo4j.SignatureCount

func (s SignatureCounts) TableHeaders() []string { return []string{"SIGNATURE", "MOLECULES"} }

func (s SignatureCounts) TableRows() [][]string {
	rows := make([][]string, len(s))
	for i, c := range s {
		rows[i] = []string{c.Signature, strconv.FormatInt(c.Molecules, 10)}
	}
	return rows
}

// NewGraphCmd queries junction trees stored with decompose --graph.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Query the stored junction-tree graph",
	}
	cmd.AddCommand(newGraphSignaturesCmd(), newGraphMoleculesCmd())
	return cmd
}

func newGraphSignaturesCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "List the cluster signatures shared by the most molecules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var cl closers
			defer cl.closeAll(cc.Logger)
			g, err := openTreeGraph(cmd.Context(), cc.Config, cc.Logger, &cl)
			if err != nil {
				return err
			}
			counts, err := g.SignatureCounts(cmd.Context(), top)
			if err != nil {
				return err
			}
			return PrintResult(cmd, SignatureCounts(counts))
		},
	}
	cmd.Flags().IntVarP(&top, "top", "k", 20, "number of signatures")
	return cmd
}

func newGraphMoleculesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "molecules SIGNATURE",
		Short: "List stored molecules containing a cluster signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var cl closers
			defer cl.closeAll(cc.Logger)
			g, err := openTreeGraph(cmd.Context(), cc.Config, cc.Logger, &cl)
			if err != nil {
				return err
			}
			smiles, err := g.MoleculesWithSignature(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, smiles)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum molecules")
	return cmd
}

//Personal.AI order the ending
