package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func (c *CLI) newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [modelfile]",
		Short: "Show a model's labels and transition scores (rows: from, columns: to)",
		Args:  cobra.MaximumNArgs(1),
		Example: `  chaincrf inspect model.json
  chaincrf inspect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var modelArg string
			if len(args) > 0 {
				modelArg = args[0]
			}
			tg, err := c.loadTagger(modelArg, c.config.CRF())
			if err != nil {
				return err
			}
			tr := tg.CRF().Trans
			names := append(tg.Labels(), "<START>", "<STOP>")

			// Boundary cells hold the sentinel.
			muted := func(row, col int) bool {
				return col > 0 && tr.Score(row, col-1) == tr.Sentinel()
			}
			t := newTable(muted, lipgloss.Left, lipgloss.Right)
			t.Headers(append([]string{"from \\ to"}, names...)...)
			for from := range tr.Size() {
				row := []string{names[from]}
				for to := range tr.Size() {
					row = append(row, fmt.Sprintf("%.4f", tr.Score(from, to)))
				}
				t.Row(row...)
			}
			fmt.Printf("%d tags, sentinel %g\n", tr.NumTags(), tr.Sentinel())
			fmt.Println(t)
			return nil
		},
	}
	return cmd
}
