// Test program that runs the image strategy chain against the live APIs.
// It prints which strategy found an image for each entity, or why none did.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/image"
	"github.com/ppiankov/cardset/internal/logger"
	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/wiki"
)

func main() {
	fmt.Println("=== Image Strategy Test ===")
	fmt.Println()

	// Entities known to exercise each strategy
	titles := []string{
		"Mars",              // P18
		"Venus",             // P18, Commons sitelink to a category
		"Drosera",           // P18 on a taxon
		"Dionaea muscipula", // P935 gallery
		"Cochlear nucleus",  // often P373 only
		"Periodic table",    // mixed
	}
	if len(os.Args) > 1 {
		titles = os.Args[1:]
	}

	log, err := logger.NewLogger("dev", "debug")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := model.DefaultConfig()
	m := metrics.New(nil)
	client := wiki.NewClient(cfg, m, log)
	remote := wiki.NewRemote(client, cfg.Endpoints, cfg.Concurrency.EntityBatches, log)
	resolver := image.NewResolver(remote, m, log)

	entities, err := remote.FetchEntities(ctx, titles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch entities: %v\n", err)
		os.Exit(1)
	}

	for _, e := range entities {
		fmt.Printf("%s (%s)\n", e.Labels, e.ID)
		fmt.Println(strings.Repeat("-", 60))

		img, err := resolver.Resolve(ctx, e)
		var noImage *image.NoImageError
		switch {
		case err == nil:
			fmt.Printf("  ✓ %s\n", img.Caption)
			fmt.Printf("    %s\n", img.SourceURL)
			if img.Credit != "" || img.License != "" {
				fmt.Printf("    %s %s\n", img.Credit, img.License)
			}
		case errors.As(err, &noImage):
			fmt.Printf("  ✗ no image, glyph labels: %s\n", strings.Join(noImage.Labels, ", "))
			for _, attempt := range noImage.Unwrap() {
				fmt.Printf("    - %v\n", attempt)
			}
		default:
			log.Error("resolve failed", zap.String("entity", e.ID), zap.Error(err))
		}
		fmt.Println()
	}

	samples, err := m.Snapshot()
	if err == nil {
		fmt.Println("Strategy outcomes:")
		for _, s := range samples {
			if s.Name == "cardset_image_strategy_total" {
				fmt.Printf("  %-28s %-10s %g\n", s.Labels["strategy"], s.Labels["outcome"], s.Value)
			}
		}
	}

	fmt.Println("\n=== Test Complete ===")
}
