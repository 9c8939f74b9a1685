package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/rohan1205/NeuraAttend/internal/database"
	"github.com/rohan1205/NeuraAttend/internal/database/postgres"
	"github.com/rohan1205/NeuraAttend/internal/detector"
	"github.com/rohan1205/NeuraAttend/internal/enroll"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/vision"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and manage the gallery of enrolled people",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people",
	RunE:  runGalleryList,
}

var galleryImportCmd = &cobra.Command{
	Use:   "import <gallery.json>",
	Short: "Copy a gallery file into PostgreSQL",
	Long: `Store every person of a gallery JSON file in the gallery_embeddings table,
replacing the samples already stored for those people.`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryImport,
}

var galleryExportCmd = &cobra.Command{
	Use:   "export <gallery.json>",
	Short: "Write the PostgreSQL gallery to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryExport,
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a person from the PostgreSQL gallery",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryDelete,
}

var gallerySearchCmd = &cobra.Command{
	Use:   "search <image>",
	Short: "Find the stored samples closest to the largest face in an image",
	Long: `Embed the largest face of an image and list the nearest samples in the
PostgreSQL gallery by Euclidean distance, regardless of the match threshold.
Useful for choosing a threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: runGallerySearch,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryImportCmd)
	galleryCmd.AddCommand(galleryExportCmd)
	galleryCmd.AddCommand(galleryDeleteCmd)
	galleryCmd.AddCommand(gallerySearchCmd)

	galleryListCmd.Flags().String("gallery", "", "Gallery JSON file (overrides GALLERY_PATH)")
	gallerySearchCmd.Flags().Int("limit", 5, "Number of samples to show")
}

// openGalleryRepository connects to PostgreSQL for the gallery commands.
func openGalleryRepository(ctx context.Context, cfg *config.Config) (*postgres.GalleryRepository, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewGalleryRepository(pool), func() { pool.Close() }, nil
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := loadGallery(context.Background(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("\n%-30s %s\n", "NAME", "SAMPLES")
	for _, name := range g.Names() {
		fmt.Printf("%-30s %d\n", name, len(g.Samples(name)))
	}
	fmt.Printf("\nDimension: %d\n", g.Dimension())
	return nil
}

func runGalleryImport(cmd *cobra.Command, args []string) error {
	g, err := facematch.LoadGalleryFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	repo, closeRepo, err := openGalleryRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	samples := database.SamplesFromGallery(g)
	for i := range samples {
		samples[i].Source = args[0]
	}
	if err := enroll.Save(ctx, repo, samples); err != nil {
		return err
	}

	count, _ := repo.Count(ctx)
	fmt.Printf("Imported %d people (%d samples); %d samples stored in total\n", g.People(), len(samples), count)
	return nil
}

func runGalleryExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	repo, closeRepo, err := openGalleryRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	samples, err := repo.LoadSamples(ctx)
	if err != nil {
		return err
	}
	g := database.BuildGallery(samples)
	if err := facematch.SaveGalleryFile(args[0], g); err != nil {
		return err
	}
	fmt.Printf("Exported %d people (%d samples) to %s\n", g.People(), g.Len(), args[0])
	return nil
}

func runGalleryDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	repo, closeRepo, err := openGalleryRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	name := facematch.NormalizePersonName(args[0])
	if err := repo.DeletePerson(ctx, name); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", name)
	return nil
}

func runGallerySearch(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0]) //nolint:gosec // user-supplied input file
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	frame, err := vision.Decode(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	m, err := loadModels(ctx, cfg)
	if err != nil {
		return err
	}
	detections, err := m.locator.Locate(ctx, frame)
	if err != nil {
		return err
	}
	face, ok := detector.Largest(detections)
	if !ok {
		return enroll.ErrNoFace
	}
	crop, err := frame.Crop(face.Box)
	if err != nil {
		return err
	}
	emb, err := m.extractor.Embed(ctx, crop)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openGalleryRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	samples, distances, err := repo.Nearest(ctx, emb, limit)
	if err != nil {
		return err
	}

	fmt.Printf("\nFace at %d,%d %dx%d (confidence %.2f)\n\n", face.Box.X, face.Box.Y, face.Box.Width, face.Box.Height, face.Confidence)
	fmt.Printf("%-30s %-8s %-10s %s\n", "NAME", "SAMPLE", "DISTANCE", "MATCH")
	for i, s := range samples {
		match := ""
		if distances[i] < cfg.Matcher.Threshold {
			match = "yes"
		}
		fmt.Printf("%-30s %-8d %-10.4f %s\n", s.Name, s.SampleIndex, distances[i], match)
	}
	return nil
}
