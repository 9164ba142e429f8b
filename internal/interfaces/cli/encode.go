package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-JTNN/internal/application/encoding"
	"github.com/turtacn/KeyIP-JTNN/internal/application/training"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-JTNN/internal/infrastructure/search/milvus"
	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// EncodeSummary reports an encode run.
type EncodeSummary struct {
	Total   int    `json:"total"`
	Encoded int    `json:"encoded"`
	Dropped int    `json:"dropped"`
	Output  string `json:"output,omitempty"`
	Indexed bool   `json:"indexed"`
	Elapsed string `json:"elapsed"`
}

func (s EncodeSummary) String() string {
	return fmt.Sprintf("encoded %d/%d molecules (%d dropped) in %s", s.Encoded, s.Total, s.Dropped, s.Elapsed)
}

func writeRecords(w io.Writer, records []encoding.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "write latent record")
		}
	}
	return bw.Flush()
}

// NewEncodeCmd writes latent means for a dataset to a file and/or Milvus.
func NewEncodeCmd() *cobra.Command {
	var (
		dataPath string
		outPath  string
		index    bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode molecules to latent vectors with the trained model",
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
			model, _, err := training.LoadModel(ctx, store, cfg.Paths.ModelKey, cfg.Paths.VocabKey)
			if err != nil {
				return err
			}
			enc := encoding.NewEncoder(model,
				encoding.WithLogger(cc.Logger),
				encoding.WithWorkers(cfg.Train.NJobs),
				encoding.WithBatchSize(cfg.Train.BatchSize))

			records, stats, err := enc.Encode(ctx, dataset)
			if err != nil {
				return err
			}
			summary := EncodeSummary{
				Total:   stats.Total,
				Encoded: stats.Encoded,
				Dropped: stats.Dropped,
				Elapsed: stats.Elapsed.Truncate(time.Millisecond).String(),
			}

			if index {
				idx, err := openLatentIndex(ctx, cfg, model.Config().LatentSize, cc.Logger, &cl)
				if err != nil {
					return err
				}
				if err := idx.Upsert(ctx, records); err != nil {
					return err
				}
				summary.Indexed = true
			}

			switch outPath {
			case "":
				if !index {
					return writeRecords(cmd.OutOrStdout(), records)
				}
			case "-":
				return writeRecords(cmd.OutOrStdout(), records)
			default:
				f, err := os.Create(outPath)
				if err != nil {
					return errors.Wrap(err, errors.CodeInvalidParam, "create output").WithDetail(outPath)
				}
				if err := writeRecords(f, records); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "close output").WithDetail(outPath)
				}
				summary.Output = outPath
			}
			cc.Logger.Info("Encode finished", logging.Int("encoded", stats.Encoded), logging.Bool("indexed", summary.Indexed))
			return PrintResult(cmd, summary)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataPath, "data", "", "SMILES file (one per line or CSV), '-' for stdin")
	f.StringVar(&outPath, "out", "", "JSON-lines output file, '-' for stdout")
	f.BoolVar(&index, "index", false, "upsert vectors into the Milvus latent index")
	return cmd
}

// Reconstructions renders reconstruction results.
type Reconstructions struct {
	Items    []encoding.Reconstruction `json:"items"`
	Exact    int                       `json:"exact"`
	Accuracy float64                   `json:"accuracy"`
	// Stereo counts inputs with stereo elements; their exact matches ignore
	// configuration.
	Stereo int `json:"stereo_inputs"`
}

func (r Reconstructions) TableHeaders() []string {
	return []string{"INPUT", "OUTPUT", "EXACT", "SKIPPED"}
}

func (r Reconstructions) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Items)+1)
	for _, it := range r.Items {
		out := it.Output
		if it.Error != "" {
			out = "error: " + it.Error
		}
		rows = append(rows, []string{it.Input, out, strconv.FormatBool(it.Exact), strconv.Itoa(it.Skipped)})
	}
	rows = append(rows, []string{"", "", fmt.Sprintf("%d/%d (%.1f%%)", r.Exact, len(r.Items), 100*r.Accuracy), ""})
	return rows
}

// NewReconstructCmd decodes the latent mean of each molecule greedily.
func NewReconstructCmd() *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Encode and greedily decode molecules, reporting exact matches",
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
			store, err := openStore(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			model, _, err := training.LoadModel(ctx, store, cfg.Paths.ModelKey, cfg.Paths.VocabKey)
			if err != nil {
				return err
			}
			items, err := encoding.NewEncoder(model, encoding.WithLogger(cc.Logger), encoding.WithWorkers(cfg.Train.NJobs)).
				Reconstruct(ctx, dataset)
			if err != nil {
				return err
			}
			out := Reconstructions{Items: items}
			for _, it := range items {
				if it.Exact {
					out.Exact++
				}
				if it.Stereo {
					out.Stereo++
				}
			}
			if len(items) > 0 {
				out.Accuracy = float64(out.Exact) / float64(len(items))
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "SMILES file (one per line or CSV), '-' for stdin")
	return cmd
}

// Neighbors lists the nearest indexed molecules to one query.
type Neighbors struct {
	Query string       `json:"query"`
	Hits  []milvus.Hit `json:"hits"`
}

// NeighborResults renders as a table.
type NeighborResults []Neighbors

func (n NeighborResults) TableHeaders() []string {
	return []string{"QUERY", "RANK", "SMILES", "DISTANCE"}
}

func (n NeighborResults) TableRows() [][]string {
	var rows [][]string
	for _, q := range n {
		for i, h := range q.Hits {
			rows = append(rows, []string{q.Query, strconv.Itoa(i + 1), h.SMILES, strconv.FormatFloat(float64(h.Score), 'f', 4, 32)})
		}
	}
	return rows
}

// NewNeighborsCmd searches the latent index for molecules close to each query.
func NewNeighborsCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "neighbors SMILES...",
		Short: "Find indexed molecules nearest in latent space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			ctx := cmd.Context()
			var cl closers
			defer cl.closeAll(cc.Logger)
			store, err := openStore(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			model, _, err := training.LoadModel(ctx, store, cfg.Paths.ModelKey, cfg.Paths.VocabKey)
			if err != nil {
				return err
			}
			records, _, err := encoding.NewEncoder(model, encoding.WithLogger(cc.Logger)).Encode(ctx, args)
			if err != nil {
				return err
			}
			idx, err := openLatentIndex(ctx, cfg, model.Config().LatentSize, cc.Logger, &cl)
			if err != nil {
				return err
			}
			out := make(NeighborResults, 0, len(records))
			for _, r := range records {
				hits, err := idx.Search(ctx, r.Vector, topK)
				if err != nil {
					return err
				}
				out = append(out, Neighbors{Query: r.SMILES, Hits: hits})
			}
			return PrintResult(cmd, out)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "number of neighbours per query")
	return cmd
}

//Personal.AI order the ending
