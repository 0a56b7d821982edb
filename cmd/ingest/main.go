// Command ingest publishes a local JSON file of posts as a new pinned
// dataset, making it visible to the bounty service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/flyfishlabs/bountyd/internal/domain"
	"github.com/flyfishlabs/bountyd/internal/pinata"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// inputPost is the accepted file format, one object per post.
type inputPost struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func run() error {
	_ = godotenv.Load()

	var (
		file    string
		jwt     string
		gateway string
		label   string
	)

	flag.StringVar(&file, "file", "", "Path to a JSON array of posts ({author, text, createdAt})")
	flag.StringVar(&jwt, "jwt", envOrDefault("PINATA_JWT", ""), "Pinata JWT")
	flag.StringVar(&gateway, "gateway", envOrDefault("PINATA_GATEWAY", ""), "IPFS gateway base URL")
	flag.StringVar(&label, "label", envOrDefault("DATASET_LABEL", "posts-dataset"), "Dataset label the service watches for")
	flag.Parse()

	if file == "" {
		return fmt.Errorf("--file is required")
	}
	if jwt == "" {
		return fmt.Errorf("--jwt is required (or set PINATA_JWT)")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var input []inputPost
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	if len(input) == 0 {
		return fmt.Errorf("input file contains no posts")
	}

	posts := make([]domain.RawPost, len(input))
	for i, p := range input {
		posts[i] = domain.RawPost{Author: p.Author, Text: p.Text}
		if p.CreatedAt != "" {
			ts, err := time.Parse(time.RFC3339, p.CreatedAt)
			if err != nil {
				return fmt.Errorf("post %d: invalid createdAt %q: %w", i, p.CreatedAt, err)
			}
			posts[i].Timestamp = ts
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	client, err := pinata.NewClient(pinata.Config{
		JWT:          jwt,
		Gateway:      gateway,
		DatasetLabel: label,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing %d posts...\n", len(posts))
	cid, err := client.PublishDataset(context.Background(), posts)
	if err != nil {
		return err
	}

	fmt.Printf("Dataset published: %s\n", cid)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
