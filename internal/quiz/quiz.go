// Package quiz turns crawled page content into multiple-choice questions.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flyfishlabs/bountyd/internal/crawler"
	"github.com/flyfishlabs/bountyd/internal/domain"
)

// DefaultQuestionCount is used when a request does not say how many
// questions it wants.
const DefaultQuestionCount = 5

// maxSourceChars bounds how much page content is sent to the model.
const maxSourceChars = 12000

// Question is one multiple-choice question with exactly four options.
type Question struct {
	Question string `json:"question"`
	AnswerA  string `json:"answerA"`
	AnswerB  string `json:"answerB"`
	AnswerC  string `json:"answerC"`
	AnswerD  string `json:"answerD"`
	Correct  string `json:"correct"`
}

// Quiz is a set of questions generated from one source page.
type Quiz struct {
	SourceURL   string     `json:"sourceUrl"`
	SourceTitle string     `json:"sourceTitle"`
	Questions   []Question `json:"questions"`
}

// PageFetcher retrieves a page as markdown.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*crawler.Page, error)
}

// Generator produces quizzes from web pages.
type Generator struct {
	fetcher   PageFetcher
	completer domain.Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(fetcher PageFetcher, completer domain.Completer, logger *slog.Logger) *Generator {
	return &Generator{
		fetcher:   fetcher,
		completer: completer,
		logger:    logger,
	}
}

// Generate crawls url and asks the model for count questions about its
// content.
func (g *Generator) Generate(ctx context.Context, url string, count int) (*Quiz, error) {
	if count <= 0 {
		count = DefaultQuestionCount
	}

	page, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}

	source := page.Markdown
	if len(source) > maxSourceChars {
		source = source[:maxSourceChars]
	}

	questions, err := g.questions(ctx, source, count)
	if err != nil {
		return nil, err
	}
	g.logger.Info("quiz generated", "url", url, "questions", len(questions))

	return &Quiz{
		SourceURL:   page.URL,
		SourceTitle: page.Title,
		Questions:   questions,
	}, nil
}

// GenerateFromText builds a quiz directly from provided content, skipping the
// crawl.
func (g *Generator) GenerateFromText(ctx context.Context, text string, count int) (*Quiz, error) {
	if count <= 0 {
		count = DefaultQuestionCount
	}
	if len(text) > maxSourceChars {
		text = text[:maxSourceChars]
	}

	questions, err := g.questions(ctx, text, count)
	if err != nil {
		return nil, err
	}
	g.logger.Info("quiz generated", "questions", len(questions))

	return &Quiz{Questions: questions}, nil
}

func (g *Generator) questions(ctx context.Context, source string, count int) ([]Question, error) {
	raw, err := g.completer.Complete(ctx, quizPrompt(source, count))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := ParseQuestions(raw)
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions could be parsed from model output")
	}
	return questions, nil
}

func quizPrompt(source string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following content, create %d multiple-choice questions.\n\n", count)
	b.WriteString("Content:\n")
	b.WriteString(source)
	b.WriteString("\n\nFormat each question exactly as:\n")
	b.WriteString("Question N: <question text>\n")
	b.WriteString("A. <option>\n")
	b.WriteString("B. <option>\n")
	b.WriteString("C. <option>\n")
	b.WriteString("D. <option>\n")
	b.WriteString("Correct Answer: <A, B, C, or D>\n\n")
	b.WriteString("Only include questions answerable from the content. Do not add commentary.")
	return b.String()
}

// ParseQuestions extracts questions from the line-oriented quiz format.
// Malformed blocks and duplicate question texts are dropped.
func ParseQuestions(raw string) []Question {
	var (
		questions []Question
		current   Question
		seen      = map[string]bool{}
	)

	flush := func() {
		if current.Question == "" {
			return
		}
		complete := current.AnswerA != "" && current.AnswerB != "" &&
			current.AnswerC != "" && current.AnswerD != "" && current.Correct != ""
		if complete && !seen[current.Question] {
			seen[current.Question] = true
			questions = append(questions, current)
		}
		current = Question{}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Question"):
			flush()
			if _, text, ok := strings.Cut(line, ":"); ok {
				current.Question = strings.TrimSpace(text)
			}
		case strings.HasPrefix(line, "A."):
			current.AnswerA = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "B."):
			current.AnswerB = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "C."):
			current.AnswerC = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "D."):
			current.AnswerD = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "Correct Answer:"):
			answer := strings.TrimSpace(strings.TrimPrefix(line, "Correct Answer:"))
			if len(answer) > 0 {
				letter := strings.ToUpper(answer[:1])
				if letter >= "A" && letter <= "D" {
					current.Correct = letter
				}
			}
		}
	}
	flush()
	return questions
}
