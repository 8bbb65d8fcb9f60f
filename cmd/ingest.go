package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/card-ingest/internal/config"
)

var ingestMockOCR bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <image>",
	Short: "Ingest a single business card image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyMockOCR(cfg, ingestMockOCR)
		env, err := initIngest(ctx, cfg, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, args[0])
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, result)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestMockOCR, "mock-ocr", false, "use the built-in sample card text instead of a real OCR provider")
	rootCmd.AddCommand(ingestCmd)
}

// applyMockOCR switches the OCR provider to the static demo text.
func applyMockOCR(c *config.Config, enabled bool) {
	if !enabled {
		return
	}
	c.OCR.Provider = "static"
	c.OCR.StaticText = ""
	c.OCR.Cache.Backend = "none"
}
