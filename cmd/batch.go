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

var batchCmd = &cobra.Command{
	Use:   "batch <file.pdf>...",
	Short: "Extract and score multiple lease PDFs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		files := make([]pipeline.File, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}
			files = append(files, pipeline.File{Name: filepath.Base(path), Data: data})
		}

		outcomes, err := env.Pipeline.ProcessBatch(ctx, files)
		if err != nil {
			return eris.Wrap(err, "process batch")
		}

		succeeded := 0
		for _, o := range outcomes {
			if o.Succeeded() {
				succeeded++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("total", len(outcomes)),
			zap.Int("succeeded", succeeded),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
