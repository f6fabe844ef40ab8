package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/happyhackingspace/chaincrf"
	"github.com/spf13/cobra"
)

func (c *CLI) newInitCommand() *cobra.Command {
	var labels []string
	var sentinel float64
	var force bool

	cmd := &cobra.Command{
		Use:   "init <modelfile>",
		Short: "Create a model with fresh transitions for a label set",
		Args:  cobra.ExactArgs(1),
		Example: `  chaincrf init model.json --labels O,B-PER,I-PER
  chaincrf init model.json --labels O,B-LOC,I-LOC --sentinel -10000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", path)
			}
			cfg := c.config.CRF()
			if cmd.Flags().Changed("sentinel") {
				cfg.Sentinel = sentinel
			}
			tg, err := chaincrf.New(labels, cfg)
			if err != nil {
				return err
			}
			if err := tg.Save(path); err != nil {
				return err
			}
			slog.Info("Model saved", "path", path, "labels", len(labels), "sentinel", cfg.Sentinel)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Comma-separated tag labels, in id order")
	cmd.Flags().Float64Var(&sentinel, "sentinel", 0, "Score of forbidden boundary transitions (default -1000)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing model file")
	_ = cmd.MarkFlagRequired("labels")
	return cmd
}
