package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/happyhackingspace/chaincrf"
	"github.com/happyhackingspace/chaincrf/internal/storage"
	"github.com/spf13/cobra"
)

func (c *CLI) newScoreCommand() *cobra.Command {
	var dataFolder string
	var split string
	var average bool

	cmd := &cobra.Command{
		Use:   "score [modelfile] [batchfile]",
		Short: "Score labeled batches: negative log-likelihood and Viterbi accuracy",
		Args:  cobra.MaximumNArgs(2),
		Example: `  # Score one labeled batch
  chaincrf score model.json batch.json

  # Score every batch of a dataset folder
  chaincrf score model.json --data-folder data

  # Only the test split, loss averaged over each batch
  chaincrf score model.json --split test --average`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var modelArg string
			if len(args) > 0 {
				modelArg = args[0]
			}
			cfg := c.config.CRF()
			if cmd.Flags().Changed("average") {
				cfg.AverageBatch = average
			}
			if !cmd.Flags().Changed("data-folder") && c.config.DataFolder != "" {
				dataFolder = c.config.DataFolder
			}

			tg, err := c.loadTagger(modelArg, cfg)
			if err != nil {
				return err
			}

			var items []storage.Item
			if len(args) == 2 {
				b, err := storage.LoadBatch(args[1])
				if err != nil {
					return err
				}
				items = []storage.Item{{Path: args[1], Batch: b}}
			} else {
				opts := storage.DefaultIterOptions()
				opts.Split = split
				opts.Verbose = c.verbose
				items, err = storage.NewStorage(dataFolder).IterBatches(opts)
				if err != nil {
					return err
				}
			}
			slog.Info("Scoring", "batches", len(items), "average", cfg.AverageBatch)

			start := time.Now()
			rows, total, err := scoreItems(tg, items)
			if err != nil {
				return err
			}
			slog.Debug("Scoring completed", "duration", time.Since(start))
			if total.Sequences == 0 {
				fmt.Println("No labeled sequences found.")
				return nil
			}

			t := newTable(nil, lipgloss.Left, lipgloss.Right)
			t.Headers("Batch", "Sequences", "NLL", "Token acc", "Sequence acc")
			for _, r := range rows {
				t.Row(evaluationRow(r.path, r.ev)...)
			}
			t.Row(evaluationRow("total", total)...)
			fmt.Println(t)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to batch data folder")
	cmd.Flags().StringVar(&split, "split", "", "Only score batches of this split")
	cmd.Flags().BoolVar(&average, "average", false, "Divide each batch loss by its batch size")
	return cmd
}

type scoreRow struct {
	path string
	ev   chaincrf.Evaluation
}

// scoreItems evaluates every labeled batch. Unlabeled batches are skipped.
func scoreItems(tg *chaincrf.Tagger, items []storage.Item) ([]scoreRow, chaincrf.Evaluation, error) {
	var total chaincrf.Evaluation
	rows := make([]scoreRow, 0, len(items))
	for _, it := range items {
		if !it.Batch.Labeled() {
			slog.Warn("Batch has no labels, skipping", "path", it.Path)
			continue
		}
		ev, err := tg.Evaluate(it.Batch.Emissions, it.Batch.Mask, it.Batch.Labels)
		if err != nil {
			return nil, total, fmt.Errorf("%s: %w", it.Path, err)
		}
		slog.Debug("Batch scored", "path", it.Path, "loss", ev.Loss, "sequences", ev.Sequences)
		rows = append(rows, scoreRow{path: it.Path, ev: ev})
		total.Add(ev)
	}
	return rows, total, nil
}

func evaluationRow(name string, ev chaincrf.Evaluation) []string {
	return []string{
		name,
		fmt.Sprintf("%d", ev.Sequences),
		fmt.Sprintf("%.4f", ev.Loss),
		fmt.Sprintf("%.1f%% (%d/%d)", ev.TokenAccuracy()*100, ev.TokenCorrect, ev.Tokens),
		fmt.Sprintf("%.1f%% (%d/%d)", ev.SequenceAccuracy()*100, ev.SequenceCorrect, ev.Sequences),
	}
}
