package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/recognition"
	"github.com/rohan1205/NeuraAttend/internal/vision"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image...]",
	Short: "Recognize faces in images or an MJPEG stream",
	Long: `Run the recognition pipeline over image files, or over an MJPEG stream
read from stdin, and mark attendance for every recognized person.

Examples:
  # Recognize faces in two photos without recording attendance
  neuraattend recognize --dry-run class1.jpg class2.jpg

  # Process a camera stream
  ffmpeg -f v4l2 -i /dev/video0 -f mjpeg -q:v 5 - | neuraattend recognize --mjpeg

  # Process every 10th frame of the stream
  neuraattend recognize --mjpeg --every 10 < stream.mjpeg`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("mjpeg", false, "Read an MJPEG stream from stdin")
	recognizeCmd.Flags().Int("every", 1, "Process every Nth frame of the stream")
	recognizeCmd.Flags().Bool("dry-run", false, "Identify faces without recording attendance")
	recognizeCmd.Flags().Float64("threshold", 0.9, "Match distance threshold (overrides MATCH_THRESHOLD)")
	recognizeCmd.Flags().Float64("confidence", 0.6, "Detector confidence threshold (overrides DETECTOR_CONFIDENCE)")
	recognizeCmd.Flags().String("gallery", "", "Gallery JSON file (overrides GALLERY_PATH)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	mjpeg := mustGetBool(cmd, "mjpeg")
	every := max(mustGetInt(cmd, "every"), 1)
	dryRun := mustGetBool(cmd, "dry-run")

	if !mjpeg && len(args) == 0 {
		return errors.New("give image files or --mjpeg")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, recognition.Options{DryRun: dryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	if dryRun {
		fmt.Println("Dry run: attendance will not be recorded")
	}

	if mjpeg {
		return recognizeStream(ctx, a.pipeline, os.Stdin, every)
	}

	for _, path := range args {
		data, err := os.ReadFile(path) //nolint:gosec // user-supplied input file
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		frame, err := vision.Decode(data)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s:\n", path)
		if err := processAndPrint(ctx, a.pipeline, frame); err != nil {
			return err
		}
	}
	return nil
}

// recognizeStream processes every Nth JPEG of an MJPEG stream until EOF or
// interrupt. Undecodable frames are reported and skipped.
func recognizeStream(ctx context.Context, p *recognition.Pipeline, r io.Reader, every int) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 32<<20)
	scanner.Split(vision.SplitJPEG)

	n := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		n++
		if (n-1)%every != 0 {
			continue
		}
		frame, err := vision.Decode(scanner.Bytes())
		if err != nil {
			fmt.Printf("frame %d: %v\n", n, err)
			continue
		}
		fmt.Printf("frame %d:\n", n)
		if err := processAndPrint(ctx, p, frame); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	fmt.Printf("Processed %d frames\n", n)
	return nil
}

func processAndPrint(ctx context.Context, p *recognition.Pipeline, frame *vision.Frame) error {
	result, err := p.ProcessFrame(ctx, frame, time.Now())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("recognition failed: %w", err)
	}

	if len(result.Faces) == 0 && len(result.Skipped) == 0 {
		fmt.Println("  no faces")
	}
	for _, f := range result.Faces {
		status := ""
		switch {
		case f.Err != nil:
			status = fmt.Sprintf(" [not recorded: %v]", f.Err)
		case f.Recorded:
			status = " [attendance recorded]"
		}
		fmt.Printf("  %s (%s) at %d,%d %dx%d%s\n", f.Label, formatDistance(f.Distance),
			f.Box.X, f.Box.Y, f.Box.Width, f.Box.Height, status)
	}
	for _, err := range result.Skipped {
		fmt.Printf("  skipped: %v\n", err)
	}
	return nil
}

func formatDistance(d float64) string {
	if math.IsInf(d, 1) {
		return "no samples"
	}
	return fmt.Sprintf("%.3f", d)
}
