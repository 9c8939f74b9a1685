package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rohan1205/NeuraAttend/internal/database/postgres"
	"github.com/rohan1205/NeuraAttend/internal/enroll"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <faces-dir>",
	Short: "Build the gallery from labelled face photos",
	Long: `Compute one embedding per photo in <faces-dir>/<person>/ and write the
resulting gallery. Directory names become person names (lowercased, without
diacritics). The largest face in each photo is used; photos without a face
are skipped.

Examples:
  # Write the gallery file configured by GALLERY_PATH
  neuraattend enroll data/faces

  # Write to a specific file and to PostgreSQL
  neuraattend enroll data/faces --output gallery.json --db`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("output", "", "Gallery JSON file to write (defaults to GALLERY_PATH)")
	enrollCmd.Flags().Bool("db", false, "Also store the samples in PostgreSQL (DATABASE_URL)")
	enrollCmd.Flags().Int("concurrency", 4, "Number of photos processed in parallel")
	enrollCmd.Flags().Float64("confidence", 0.6, "Detector confidence threshold (overrides DETECTOR_CONFIDENCE)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	output := mustGetString(cmd, "output")
	toDB := mustGetBool(cmd, "db")
	concurrency := mustGetInt(cmd, "concurrency")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if output == "" {
		output = cfg.Gallery.Path
	}
	if toDB && cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required for --db")
	}

	images, err := enroll.ListImages(args[0])
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found under %s", args[0])
	}
	fmt.Printf("Found %d photos\n", len(images))

	ctx := context.Background()
	m, err := loadModels(ctx, cfg)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	result, err := enroll.New(m.locator, m.extractor).Enroll(ctx, images, enroll.Options{
		Concurrency: concurrency,
		OnProgress:  func(enroll.ProgressInfo) { bar.Add(1) },
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	for _, s := range result.Skipped {
		fmt.Printf("Skipped %s: %v\n", s.Image.Path, s.Err)
	}

	g := result.Gallery()
	if g.Empty() {
		return errors.New("no face could be enrolled")
	}
	if err := facematch.SaveGalleryFile(output, g); err != nil {
		return err
	}
	fmt.Printf("Saved gallery with %d people and %d samples to %s\n", g.People(), g.Len(), output)

	if toDB {
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := enroll.Save(ctx, postgres.NewGalleryRepository(pool), result.Samples); err != nil {
			return err
		}
		fmt.Printf("Stored %d samples in PostgreSQL\n", len(result.Samples))
	}

	fmt.Printf("\nDone: %d enrolled, %d skipped\n", len(result.Samples), len(result.Skipped))
	return nil
}
