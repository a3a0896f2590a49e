// Command facegate-check runs the configured face detector against a local
// image. Useful for verifying provider credentials before deploying.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/veriscope/veriscope/internal/facegate"
	"github.com/veriscope/veriscope/internal/genai"
	"github.com/veriscope/veriscope/internal/logging"
)

func main() {
	defaultImage := os.Getenv("IMAGE")
	imagePath := flag.String("image", defaultImage, "path to local image file")
	provider := flag.String("provider", os.Getenv("FACE_GATE_PROVIDER"), "face detection provider: vision or rekognition")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "image path is required (pass -image or IMAGE env var)")
		os.Exit(1)
	}

	imageBytes, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read image: %v\n", err)
		os.Exit(1)
	}

	detector, err := buildDetector(*provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize detector: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := detector.DetectFaces(ctx, imageBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "face detection failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("HasFaces: %v\n", result.HasFaces)
	fmt.Printf("FaceCount: %d\n", result.FaceCount)
	if result.Reason != "" {
		fmt.Printf("Reason: %s\n", result.Reason)
	}
	for _, region := range result.FaceRegions {
		fmt.Printf("  region x=%.3f y=%.3f w=%.3f h=%.3f\n",
			region.X, region.Y, region.Width, region.Height)
	}
}

func buildDetector(provider string) (facegate.Detector, error) {
	if provider == "rekognition" {
		return facegate.NewRekognitionDetector(context.Background(), os.Getenv("AWS_REGION"))
	}

	client := genai.New(genai.Config{
		Endpoint: os.Getenv("VISION_ENDPOINT"),
		APIKey:   os.Getenv("VISION_API_KEY"),
		Model:    os.Getenv("VISION_MODEL"),
	})
	return facegate.NewVisionDetector(client, logging.New(logging.LevelError)), nil
}
