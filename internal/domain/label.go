package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Fallbacks for label fields the model leaves out or mangles.
const (
	DefaultCategory = "Uncategorized"
	DefaultColor    = "#000000"
)

// LabeledPost is a post annotated with a category and a display color.
type LabeledPost struct {
	Post     string `json:"post"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// LabelPost asks the model to categorize a piece of post text. Missing or
// unparsable fields degrade to the input text, DefaultCategory, and
// DefaultColor rather than failing the request.
func (s *BountyService) LabelPost(ctx context.Context, text string) (*LabeledPost, error) {
	raw, err := s.completer.Complete(ctx, labelDataPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("label post: %w", err)
	}

	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var labeled LabeledPost
	if err := json.Unmarshal([]byte(clean), &labeled); err != nil {
		s.logger.Error("failed to parse label response", "error", err)
	}

	if labeled.Post == "" {
		labeled.Post = text
	}
	if labeled.Category == "" {
		labeled.Category = DefaultCategory
	}
	if labeled.Color == "" {
		labeled.Color = DefaultColor
	}

	s.logger.Info("post labeled", "category", labeled.Category)
	return &labeled, nil
}
