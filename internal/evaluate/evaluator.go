package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"imageharvest/internal/model"
)

// ErrUnparseableChoice is returned by ParseChoice when the model response
// does not start with a usable index.
var ErrUnparseableChoice = errors.New("evaluation response is not an index")

// Evaluator turns a keyword and its candidate images into a chosen
// candidate index. A nil client means evaluation is disabled.
type Evaluator struct {
	client *GeminiClient
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets a custom logger for the evaluator.
func WithLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = logger }
}

// New creates an Evaluator backed by client. Pass a nil client to
// disable evaluation: every keyword then resolves to its first candidate
// without any network call.
func New(client *GeminiClient, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{client: client}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Enabled reports whether evaluation calls will be made.
func (e *Evaluator) Enabled() bool {
	return e != nil && e.client != nil
}

// Evaluate returns the candidate index to prefer for kw, given the
// normalized JPEG bytes of the candidates that downloaded successfully.
// The returned index is always valid for the original candidate list of
// size total. Any failure falls back to index 0 with Fallback set.
func (e *Evaluator) Evaluate(ctx context.Context, kw model.Keyword, images []model.CandidateImage, total int) model.EvaluationResult {
	fallback := model.EvaluationResult{ChosenIndex: 0, Fallback: true}

	if !e.Enabled() || total == 0 {
		return fallback
	}
	if len(images) == 0 {
		e.logger.Warn("no candidate images available for evaluation",
			"id", kw.ID,
			"keyword", kw.KeywordFormatted,
		)
		return fallback
	}

	prompt := fmt.Sprintf(
		"Here are %d images searched for the keyword '%s'. Which one is the best match? "+
			"Choose the index (1 to %d) of the best image fitting the keyword without watermark. "+
			"Just return the number.",
		len(images), kw.KeywordFormatted, len(images),
	)

	data := make([][]byte, len(images))
	for i, img := range images {
		data[i] = img.Data
	}

	text, err := e.client.GenerateChoice(ctx, prompt, data)
	if err != nil {
		e.logger.Warn("candidate evaluation failed, using first candidate",
			"id", kw.ID,
			"keyword", kw.KeywordFormatted,
			"error", err,
		)
		return fallback
	}

	choice, err := ParseChoice(text, len(images))
	if err != nil {
		e.logger.Warn("unusable evaluation response, using first candidate",
			"id", kw.ID,
			"response", text,
			"error", err,
		)
		return fallback
	}

	// The response indexes the submitted images; map back to the
	// candidate's original search rank.
	return model.EvaluationResult{ChosenIndex: images[choice].Rank}
}

// ParseChoice extracts a 1-based index from the model's text response and
// returns it zero-based. The first whitespace-separated token must be an
// integer in [1, n]; anything else is ErrUnparseableChoice.
func ParseChoice(text string, n int) (int, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty response", ErrUnparseableChoice)
	}

	// Tolerate trailing punctuation like "3." or "3,".
	token := strings.TrimRight(fields[0], ".,:;!")
	choice, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableChoice, fields[0])
	}
	if choice < 1 || choice > n {
		return 0, fmt.Errorf("%w: index %d out of range 1..%d", ErrUnparseableChoice, choice, n)
	}
	return choice - 1, nil
}
