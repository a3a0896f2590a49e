// Command analyze runs the detection pipeline once over a local media file
// and prints the result as JSON. Nothing is persisted; it exists for trying
// out classifier and vision model configuration from a shell.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/veriscope/veriscope/internal/analysis"
	"github.com/veriscope/veriscope/internal/cache"
	"github.com/veriscope/veriscope/internal/classifier"
	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/internal/decision"
	"github.com/veriscope/veriscope/internal/explain"
	"github.com/veriscope/veriscope/internal/facegate"
	"github.com/veriscope/veriscope/internal/genai"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/storage"
)

func main() {
	filePath := flag.String("file", "", "path to local media file")
	mediaType := flag.String("type", "image", "media type: image, video, or audio")
	frames := flag.String("frames", "", "comma-separated frame files (video only)")
	cfg := config.Load()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(1)
	}

	result, err := run(cfg, *filePath, models.MediaType(*mediaType), *frames)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func run(cfg *config.Config, filePath string, mediaType models.MediaType, frames string) (*models.AnalysisResult, error) {
	logger := logging.New(logging.LevelError)

	// Serve the file's directory as the object store so the pipeline fetches
	// exactly like it would in production.
	dir, name := filepath.Split(filePath)
	if dir == "" {
		dir = "."
	}
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		return nil, err
	}

	var frameLocators []string
	for _, f := range strings.Split(frames, ",") {
		if f = strings.TrimSpace(f); f != "" {
			rel, err := filepath.Rel(dir, f)
			if err != nil {
				rel = f
			}
			frameLocators = append(frameLocators, rel)
		}
	}

	vision := genai.New(genai.Config{
		Endpoint: cfg.Vision.Endpoint,
		APIKey:   cfg.Vision.APIKey,
		Model:    cfg.Vision.Model,
		Timeout:  cfg.Vision.Timeout,
	})

	var faces facegate.Detector
	switch cfg.FaceGate.Provider {
	case "rekognition":
		faces, err = facegate.NewRekognitionDetector(context.Background(), cfg.FaceGate.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Rekognition: %w", err)
		}
	case "off":
	default:
		faces = facegate.NewVisionDetector(vision, logger)
	}

	var classifiers []classifier.Classifier
	if c := cfg.Classifiers.Primary; c.Configured() {
		classifiers = append(classifiers, buildClassifier("primary", c))
	}
	if c := cfg.Classifiers.Fallback; c.Configured() {
		classifiers = append(classifiers, buildClassifier("fallback", c))
	}

	svc := analysis.NewService(analysis.Config{
		Fetcher:     storage.NewFetcher(store, logger),
		Faces:       faces,
		Classifiers: classifiers,
		Engine:      decision.NewEngine(decision.DefaultThresholds()),
		Explainer:   explain.NewVisionGenerator(vision),
		Writer:      &printWriter{},
		StatusCache: cache.NewMemory(time.Minute),
		Logger:      logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return svc.Analyze(ctx, models.AnalysisRequest{
		MediaID:       name,
		MediaType:     mediaType,
		SourceLocator: name,
		FrameLocators: frameLocators,
	})
}

func buildClassifier(name string, cfg config.ClassifierConfig) classifier.Classifier {
	if cfg.Kind == "polling" {
		return classifier.NewPollingHTTP(classifier.PollingHTTPConfig{
			Name:            name,
			BaseURL:         cfg.Endpoint,
			APIKey:          cfg.APIKey,
			RequestTimeout:  cfg.Timeout,
			PollInterval:    cfg.PollInterval,
			MaxPollAttempts: cfg.MaxPollAttempts,
		})
	}
	return classifier.NewSyncHTTP(classifier.SyncHTTPConfig{
		Name:     name,
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
	})
}

// printWriter satisfies the pipeline's persistence contract without a
// database. Failures are reported on stderr.
type printWriter struct{}

func (printWriter) EnsureProcessing(ctx context.Context, mediaID string) error { return nil }

func (printWriter) Complete(ctx context.Context, mediaID string, result *models.AnalysisResult) error {
	return nil
}

func (printWriter) Fail(ctx context.Context, mediaID, reason string) error {
	fmt.Fprintf(os.Stderr, "analysis of %s failed: %s\n", mediaID, reason)
	return nil
}
