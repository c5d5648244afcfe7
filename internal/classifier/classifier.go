// Package classifier turns a resident message into an AnalysisResult by
// asking an external language-inference service and validating what comes
// back. Model output is never trusted: it is schema-checked, then coerced
// onto the closed intent/priority/route sets. Any failure yields the
// conservative fallback verdict together with an error wrapping
// ErrClassification, so callers always have a usable result.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
)

// ErrClassification reports that inference failed or returned unusable
// output. The accompanying AnalysisResult is domain.FallbackAnalysis().
var ErrClassification = errors.New("classification failed")

// DefaultTimeout bounds a single inference call when Classifier.Timeout is unset.
const DefaultTimeout = 15 * time.Second

// Inferrer sends a system instruction and a user prompt to a language model
// and returns its raw text answer.
type Inferrer interface {
	Infer(ctx context.Context, system, prompt string) (string, error)
}

// InferFunc adapts a plain function to the Inferrer interface.
type InferFunc func(ctx context.Context, system, prompt string) (string, error)

// Infer calls f.
func (f InferFunc) Infer(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// Classifier validates inputs, calls the Inferrer once and coerces its output.
// There is no retry; a failed call degrades to the fallback verdict.
type Classifier struct {
	Inferrer Inferrer
	Timeout  time.Duration
}

// New returns a Classifier using inf with the given per-call timeout.
func New(inf Inferrer, timeout time.Duration) *Classifier {
	return &Classifier{Inferrer: inf, Timeout: timeout}
}

// Classify returns the verdict for one message. On failure the result is the
// fallback verdict and err wraps ErrClassification.
func (c *Classifier) Classify(ctx context.Context, text string, sender domain.SenderType, lang domain.Language, buildingName string) (domain.AnalysisResult, error) {
	tr := otel.Tracer("classifier/Classifier")
	ctx, span := tr.Start(ctx, "Classify",
		trace.WithAttributes(
			attribute.String("sender.type", string(sender)),
			attribute.String("language", string(lang)),
		),
	)
	defer span.End()

	res, err := c.classify(ctx, text, sender, lang, buildingName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification fallback")
		return domain.FallbackAnalysis(), err
	}
	span.SetAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.String("priority", string(res.Priority)),
	)
	return res, nil
}

func (c *Classifier) classify(ctx context.Context, text string, sender domain.SenderType, lang domain.Language, buildingName string) (domain.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return domain.AnalysisResult{}, fmt.Errorf("%w: empty text", ErrClassification)
	case !sender.Valid():
		return domain.AnalysisResult{}, fmt.Errorf("%w: invalid sender type %q", ErrClassification, sender)
	case !lang.Valid():
		return domain.AnalysisResult{}, fmt.Errorf("%w: unsupported language %q", ErrClassification, lang)
	case c == nil || c.Inferrer == nil:
		return domain.AnalysisResult{}, fmt.Errorf("%w: no inference backend", ErrClassification)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.Inferrer.Infer(ctx, systemPrompt, userPrompt(text, sender, lang, buildingName))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return Parse(raw)
}

// rawAnalysis mirrors the JSON document requested from the model. Pointers
// distinguish missing fields from zero values.
type rawAnalysis struct {
	Intent              *string        `json:"intent"`
	Priority            *string        `json:"priority"`
	RouteTo             *string        `json:"routeTo"`
	SuggestedResponse   *string        `json:"suggestedResponse"`
	RequiresHumanReview *bool          `json:"requiresHumanReview"`
	ExtractedData       map[string]any `json:"extractedData"`
}

// Parse validates a raw model answer and coerces it into an AnalysisResult.
// Markdown code fences around the JSON are tolerated.
func Parse(raw string) (domain.AnalysisResult, error) {
	body := stripFences(raw)
	if body == "" {
		return domain.AnalysisResult{}, fmt.Errorf("%w: empty model output", ErrClassification)
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: malformed json: %v", ErrClassification, err)
	}
	vr, err := analysisSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: schema: %v", ErrClassification, err)
	}
	if !vr.Valid() {
		msgs := make([]string, 0, len(vr.Errors()))
		for _, e := range vr.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.AnalysisResult{}, fmt.Errorf("%w: %s", ErrClassification, strings.Join(msgs, "; "))
	}

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(body), &ra); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: decode: %v", ErrClassification, err)
	}
	return coerce(ra), nil
}

func coerce(ra rawAnalysis) domain.AnalysisResult {
	res := domain.AnalysisResult{
		Intent:        domain.IntentOther,
		Priority:      domain.PriorityMedium,
		RouteTo:       domain.RouteAdmin,
		ExtractedData: map[string]any{},
	}
	if ra.Intent != nil {
		res.Intent = domain.ParseIntent(*ra.Intent)
	}
	if ra.Priority != nil {
		res.Priority, _ = domain.ParsePriority(*ra.Priority)
	}
	if ra.RouteTo != nil {
		res.RouteTo = domain.ParseRouteTarget(*ra.RouteTo)
	}
	if ra.SuggestedResponse != nil {
		res.SuggestedResponse = strings.TrimSpace(*ra.SuggestedResponse)
	}
	if ra.RequiresHumanReview != nil {
		res.RequiresHumanReview = *ra.RequiresHumanReview
	}
	for k, v := range ra.ExtractedData {
		res.ExtractedData[k] = v
	}
	return res
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the info string, e.g. ```json
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
