package cli

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"
	"github.com/happyhackingspace/chaincrf"
	"github.com/happyhackingspace/chaincrf/internal/storage"
	"github.com/spf13/cobra"
)

func (c *CLI) newDecodeCommand() *cobra.Command {
	var method string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "decode [modelfile] <batchfile>",
		Short: "Decode the best label sequences of an emission batch",
		Args:  cobra.RangeArgs(1, 2),
		Example: `  # Viterbi decoding
  chaincrf decode model.json batch.json

  # All three decoders with a fixed seed
  chaincrf decode model.json batch.json --method all --seed 42

  # Model from the config file or ./model.json
  chaincrf decode batch.json --method beam`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelArg, batchPath := "", args[0]
			if len(args) == 2 {
				modelArg, batchPath = args[0], args[1]
			}
			if !cmd.Flags().Changed("method") && c.config.Method != "" {
				method = c.config.Method
			}
			var src rand.Source
			switch {
			case cmd.Flags().Changed("seed"):
				src = rand.NewPCG(seed, seed)
			case c.config.Seed != nil:
				src = rand.NewPCG(*c.config.Seed, *c.config.Seed)
			default:
				src = rand.NewPCG(rand.Uint64(), rand.Uint64())
			}

			tg, err := c.loadTagger(modelArg, c.config.CRF())
			if err != nil {
				return err
			}
			batch, err := storage.LoadBatch(batchPath)
			if err != nil {
				return err
			}
			slog.Debug("Batch loaded", "path", batchPath, "size", batch.Size())

			start := time.Now()
			result, err := decodeBatch(tg, batch, method, src)
			if err != nil {
				return err
			}
			slog.Debug("Decoding completed", "method", method, "duration", time.Since(start))

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "viterbi", "Decoder: viterbi, sample, beam or all")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for the sampler and beam pick (default: random)")
	return cmd
}

func decodeBatch(tg *chaincrf.Tagger, batch *storage.Batch, method string, src rand.Source) (*chaincrf.DecodeResult, error) {
	var (
		res chaincrf.DecodeResult
		err error
	)
	switch method {
	case "viterbi":
		res.Viterbi, err = tg.TagBatch(batch.Emissions, batch.Mask)
	case "sample":
		res.Sample, err = tg.Sample(batch.Emissions, batch.Mask, src)
	case "beam":
		res.Beam, err = tg.BeamSearch(batch.Emissions, batch.Mask, src)
	case "all":
		return tg.Decode(batch.Emissions, batch.Mask, src)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
