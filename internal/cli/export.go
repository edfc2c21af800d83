package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// NewExportCmd writes the filtered results view as CSV, the same rows the
// admin export endpoint returns for the same filters.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		out   string
		name  string
		email string
		date  string
		sort  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz results to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			parsed, err := domain.ParseResultSort(sort)
			if err != nil {
				return err
			}
			query := domain.ResultQuery{Name: name, Email: email, Date: date, Sort: parsed}
			if err := query.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := b.services(cfg, log).results.Export(ctx, query, w)
			if err != nil {
				return err
			}
			log.Info("results exported", zap.Int("rows", n), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&name, "name", "", "case-insensitive name substring")
	cmd.Flags().StringVar(&email, "email", "", "case-insensitive email substring")
	cmd.Flags().StringVar(&date, "date", "", "created on this UTC day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sort, "sort", "score_asc", "score_asc, score_desc, asc or desc")
	return cmd
}
