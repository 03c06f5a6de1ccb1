package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/store"
)

var (
	resultsStatus   string
	resultsTier     string
	resultsCity     string
	resultsMinScore float64
	resultsLimit    int
	resultsOffset   int
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored extraction results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.ListResults(ctx, store.Filter{
			Status:   model.Status(resultsStatus),
			Tier:     model.QualityTier(resultsTier),
			City:     resultsCity,
			MinScore: resultsMinScore,
			Limit:    resultsLimit,
			Offset:   resultsOffset,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

var resultsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one extraction result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := st.GetResult(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one extraction result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.DeleteResult(ctx, args[0])
	},
}

func init() {
	resultsCmd.Flags().StringVar(&resultsStatus, "status", "", "filter by status (success, failed)")
	resultsCmd.Flags().StringVar(&resultsTier, "tier", "", "filter by quality tier (excellent, good, fair, poor)")
	resultsCmd.Flags().StringVar(&resultsCity, "city", "", "filter by city")
	resultsCmd.Flags().Float64Var(&resultsMinScore, "min-score", 0, "minimum overall quality score")
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 0, "maximum results (default 100)")
	resultsCmd.Flags().IntVar(&resultsOffset, "offset", 0, "skip this many results")

	resultsCmd.AddCommand(resultsGetCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
	rootCmd.AddCommand(resultsCmd)
}
