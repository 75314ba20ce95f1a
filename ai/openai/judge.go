package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyResponse is returned when the model returns no choices.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrMalformedResponse is returned when no attempt produced parseable JSON.
	ErrMalformedResponse = errors.New("malformed judge response")

	// ErrMissingJudgment marks a candidate the model left out of a batch response.
	ErrMissingJudgment = errors.New("judge response has no result for candidate")
)

// Judge implements ai.Judge using OpenAI-compatible chat APIs.
type Judge struct {
	client      llms.Model
	temperature float64
	maxAttempts int
	logger      *slog.Logger
}

// judgmentJSON is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type judgmentJSON struct {
	Index          int     `json:"index"`
	IsMatch        bool    `json:"is_match"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	Recommendation string  `json:"recommendation"`
	Risk           string  `json:"risk"`
}

func (j judgmentJSON) judgment() core.Judgment {
	return core.Judgment{
		IsMatch:        j.IsMatch,
		Confidence:     min(max(j.Confidence, 0), 1),
		Reasoning:      j.Reasoning,
		Recommendation: j.Recommendation,
		Risk:           j.Risk,
	}
}

// batchJSON is the wrapper structure for a batch response.
type batchJSON struct {
	Results        []judgmentJSON `json:"results"`
	Summary        string         `json:"summary"`
	Risk           string         `json:"risk"`
	Recommendation string         `json:"recommendation"`
}

// newJudge is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newJudge(config *ai.Config) (*Judge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.JudgeHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.JudgeModel),
	)
	if err != nil {
		return nil, err
	}

	return newJudgeWithModel(client, config.Temperature, config.MaxAttempts), nil
}

func newJudgeWithModel(client llms.Model, temperature float64, maxAttempts int) *Judge {
	return &Judge{
		client:      client,
		temperature: temperature,
		maxAttempts: max(maxAttempts, 1),
		logger:      slog.Default().With("component", "openai-judge"),
	}
}

// NewJudge creates a new judge using the provided configuration.
//
// Returns ai.Judge interface to enforce abstraction.
func NewJudge(config *ai.Config) (ai.Judge, error) {
	return newJudge(config)
}

// Judge decides whether the user clause covers the standard clause.
func (j *Judge) Judge(ctx context.Context, standard, user ai.Passage) (core.Judgment, error) {
	var result judgmentJSON
	if err := j.complete(ctx, buildSinglePrompt(standard, user), &result); err != nil {
		return core.Judgment{}, err
	}
	return result.judgment(), nil
}

// JudgeBatch judges every candidate of req in one request. Results are
// placed by their 1-based index when the model supplies one, otherwise by
// position. Candidates without a result get a failed judgment.
func (j *Judge) JudgeBatch(ctx context.Context, req ai.BatchRequest) (*ai.BatchVerdict, error) {
	if len(req.Candidates) == 0 {
		return &ai.BatchVerdict{Judgments: []core.Judgment{}}, nil
	}

	var result batchJSON
	if err := j.complete(ctx, buildBatchPrompt(req), &result); err != nil {
		return nil, err
	}

	n := len(req.Candidates)
	judgments := make([]core.Judgment, n)
	filled := make([]bool, n)
	for pos, r := range result.Results {
		i := pos
		if r.Index > 0 {
			i = r.Index - 1
		}
		if i < 0 || i >= n || filled[i] {
			continue
		}
		judgments[i] = r.judgment()
		filled[i] = true
	}
	missing := 0
	for i := range judgments {
		if !filled[i] {
			judgments[i] = core.FailedJudgment(ErrMissingJudgment)
			missing++
		}
	}
	if missing > 0 {
		j.logger.Warn("batch response incomplete", "candidates", n, "missing", missing)
	}

	return &ai.BatchVerdict{
		Judgments:      judgments,
		Summary:        result.Summary,
		Risk:           result.Risk,
		Recommendation: result.Recommendation,
	}, nil
}

// complete sends the prompt and decodes the JSON answer into out, retrying
// when the answer cannot be parsed. Transport errors are returned at once.
func (j *Judge) complete(ctx context.Context, prompt string, out any) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, judgeSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 0; attempt < j.maxAttempts; attempt++ {
		response, err := j.client.GenerateContent(ctx, content,
			llms.WithTemperature(j.temperature), llms.WithJSONMode())
		if err != nil {
			j.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}

		if len(response.Choices) < 1 {
			lastErr = ErrEmptyResponse
			j.logger.Warn("no choices returned from model", "attempt", attempt+1)
			continue
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
			j.logger.Warn("error parsing judge response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return nil
	}

	j.logger.Error("failed to parse judge response after retries", "attempts", j.maxAttempts, "err", lastErr)
	return lastErr
}
