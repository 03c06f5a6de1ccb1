package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mietwerk/leasescan/internal/export"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/store"
)

var (
	exportOut      string
	exportStatus   string
	exportTier     string
	exportCity     string
	exportMinScore float64
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored results to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.ListResults(ctx, store.Filter{
			Status:   model.Status(exportStatus),
			Tier:     model.QualityTier(exportTier),
			City:     exportCity,
			MinScore: exportMinScore,
			Limit:    exportLimit,
		})
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", exportOut)
		}
		defer f.Close()

		if err := export.WriteXLSX(f, results); err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.Int("results", len(results)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leasescan_export.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "filter by status (success, failed)")
	exportCmd.Flags().StringVar(&exportTier, "tier", "", "filter by quality tier")
	exportCmd.Flags().StringVar(&exportCity, "city", "", "filter by city")
	exportCmd.Flags().Float64Var(&exportMinScore, "min-score", 0, "minimum overall quality score")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum results (default 100)")
	rootCmd.AddCommand(exportCmd)
}
