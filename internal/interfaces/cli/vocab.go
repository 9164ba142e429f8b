package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/application/corpus"
	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/domain/vocabulary"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
)

// VocabSummary reports a fitted vocabulary.
type VocabSummary struct {
	Key        string   `json:"key"`
	Size       int      `json:"size"`
	Molecules  int      `json:"molecules"`
	Signatures []string `json:"signatures,omitempty"`
}

func (v VocabSummary) String() string {
	s := fmt.Sprintf("vocabulary %s: %d clusters", v.Key, v.Size)
	if v.Molecules > 0 {
		s += fmt.Sprintf(" from %d molecules", v.Molecules)
	}
	return s
}

func (v VocabSummary) TableHeaders() []string { return []string{"INDEX", "SIGNATURE"} }

func (v VocabSummary) TableRows() [][]string {
	rows := make([][]string, len(v.Signatures))
	for i, s := range v.Signatures {
		rows[i] = []string{strconv.Itoa(i), s}
	}
	return rows
}

// NewVocabCmd groups vocabulary commands.
func NewVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Build and inspect cluster vocabularies",
	}
	cmd.AddCommand(newVocabBuildCmd(), newVocabShowCmd())
	return cmd
}

func newVocabBuildCmd() *cobra.Command {
	var dataPath string
	var list bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fit a vocabulary over a dataset and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			ctx := cmd.Context()
			dataset, err := readDataset(dataPath, cfg.Paths.SMILESColumn)
			if err != nil {
				return err
			}
			var cl closers
			defer cl.closeAll(cc.Logger)
			store, err := openStore(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			cache, _, err := openCache(cfg, cc.Logger, &cl)
			if err != nil {
				return err
			}
			c, err := corpus.Fit(ctx, dataset, nil, cfg.Train.NJobs,
				corpus.WithLogger(cc.Logger),
				corpus.WithCache(cache),
				corpus.WithOptions(training.CorpusOptions(cfg)))
			if err != nil {
				return err
			}
			vocab := c.Vocabulary()
			if err := vocab.Save(ctx, store, cfg.Paths.VocabKey); err != nil {
				return err
			}
			cc.Logger.Info("Vocabulary saved", logging.String("key", cfg.Paths.VocabKey), logging.Int("size", vocab.Size()))
			out := VocabSummary{Key: cfg.Paths.VocabKey, Size: vocab.Size(), Molecules: len(dataset)}
			if list {
				out.Signatures = vocab.Signatures()
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "SMILES file (one per line or CSV), '-' for stdin")
	cmd.Flags().BoolVar(&list, "list", false, "include every signature in the output")
	return cmd
}

func newVocabShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cc.Config, cc.Logger)
			if err != nil {
				return err
			}
			vocab, err := vocabulary.Load(cmd.Context(), store, cc.Config.Paths.VocabKey)
			if err != nil {
				return err
			}
			return PrintResult(cmd, VocabSummary{
				Key:        cc.Config.Paths.VocabKey,
				Size:       vocab.Size(),
				Signatures: vocab.Signatures(),
			})
		},
	}
}

//Personal.AI order the ending
