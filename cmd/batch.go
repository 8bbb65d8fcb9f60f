package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/card-ingest/internal/model"
)

var (
	batchConcurrency int
	batchMockOCR     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <image>...",
	Short: "Ingest many business card images concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyMockOCR(cfg, batchMockOCR)
		env, err := initIngest(ctx, cfg, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		summary, err := processBatch(ctx, args, concurrency, env.Pipeline.Run)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return eris.Errorf("batch: %d of %d images failed", summary.Failed, len(args))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max images processed in parallel (default from config)")
	batchCmd.Flags().BoolVar(&batchMockOCR, "mock-ocr", false, "use the built-in sample card text instead of a real OCR provider")
	rootCmd.AddCommand(batchCmd)
}

// ingestFunc is the callback signature for ingesting one image.
type ingestFunc func(ctx context.Context, imageRef string) (*model.IngestResult, error)

// batchSummary counts batch outcomes.
type batchSummary struct {
	Synced   int64
	Unsynced int64
	Failed   int64
}

// processBatch ingests images concurrently. Individual failures are counted
// and logged; they never abort the rest of the batch.
func processBatch(ctx context.Context, images []string, concurrency int, ingest ingestFunc) (batchSummary, error) {
	if len(images) == 0 {
		zap.L().Info("no images to process")
		return batchSummary{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("images", len(images)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var synced, unsynced, failed atomic.Int64

	for _, image := range images {
		g.Go(func() error {
			log := zap.L().With(zap.String("image", image))

			result, err := ingest(gctx, image)
			if err != nil {
				failed.Add(1)
				log.Error("ingest failed", zap.Error(err))
				return nil
			}

			if result.Synced {
				synced.Add(1)
			} else {
				unsynced.Add(1)
			}
			log.Info("ingest complete",
				zap.String("lead_id", result.Lead.ID),
				zap.String("stage", string(result.Stage)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	summary := batchSummary{Synced: synced.Load(), Unsynced: unsynced.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("synced", summary.Synced),
		zap.Int64("unsynced", summary.Unsynced),
		zap.Int64("failed", summary.Failed),
	)
	return summary, nil
}
