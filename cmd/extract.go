package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mietwerk/leasescan/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract and score a single lease PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}

		result, err := env.Pipeline.Process(ctx, pipeline.File{
			Name: filepath.Base(path),
			Data: data,
		})
		if err != nil {
			return eris.Wrap(err, "process document")
		}

		if result.Quality != nil {
			zap.L().Info("extraction complete",
				zap.String("id", result.ID),
				zap.Float64("overall_score", result.Quality.OverallScore),
				zap.String("tier", string(result.Quality.Tier)),
			)
		}

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
