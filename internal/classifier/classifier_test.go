package classifier

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/condohub/condo-backend/internal/domain"
)

func fixed(out string, err error) Inferrer {
	return InferFunc(func(context.Context, string, string) (string, error) { return out, err })
}

func TestClassify_ValidOutput(t *testing.T) {
	var gotPrompt string
	inf := InferFunc(func(_ context.Context, system, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"intent":"maintenance_request","priority":"high","routeTo":"owner","suggestedResponse":" Lo reportamos al propietario. ","requiresHumanReview":false,"extractedData":{"maintenanceCategory":"hvac","location":"101"}}`, nil
	})
	c := New(inf, time.Second)

	res, err := c.Classify(context.Background(), "El aire acondicionado no funciona", domain.SenderRenter, domain.LanguageES, "Torre Norte")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Intent != domain.IntentMaintenanceRequest || res.Priority != domain.PriorityHigh || res.RouteTo != domain.RouteOwner {
		t.Fatalf("unexpected labels: %+v", res)
	}
	if res.SuggestedResponse != "Lo reportamos al propietario." || res.RequiresHumanReview {
		t.Fatalf("unexpected reply fields: %+v", res)
	}
	if res.ExtractedData["maintenanceCategory"] != "hvac" {
		t.Fatalf("ExtractedData = %v", res.ExtractedData)
	}

	for _, want := range []string{"Torre Norte", "Sender: renter", "Spanish", "El aire acondicionado no funciona"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestClassify_CoercesUnknownValues(t *testing.T) {
	c := New(fixed(`{"intent":"pool_party","routeTo":"concierge"}`, nil), time.Second)

	res, err := c.Classify(context.Background(), "¿Puedo hacer una fiesta?", domain.SenderOwner, domain.LanguageES, "B")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// Missing priority defaults to medium.
	if res.Intent != domain.IntentOther || res.Priority != domain.PriorityMedium || res.RouteTo != domain.RouteAdmin {
		t.Fatalf("unexpected coercion: %+v", res)
	}
	if res.ExtractedData == nil {
		t.Fatalf("ExtractedData should never be nil")
	}
}

func TestClassify_ToleratesCodeFences(t *testing.T) {
	c := New(fixed("```json\n{\"intent\":\"general_question\",\"priority\":\"low\",\"routeTo\":\"admin\"}\n```", nil), time.Second)

	res, err := c.Classify(context.Background(), "What time does the gym open?", domain.SenderOwner, domain.LanguageEN, "B")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Intent != domain.IntentGeneralQuestion || res.Priority != domain.PriorityLow {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClassify_FailuresFallBack(t *testing.T) {
	cases := map[string]struct {
		inf  Inferrer
		text string
	}{
		"transport error": {fixed("", errors.New("connection reset")), "hola"},
		"malformed json":  {fixed(`{"intent":`, nil), "hola"},
		"not an object":   {fixed(`["maintenance_request"]`, nil), "hola"},
		"wrong type":      {fixed(`{"intent":"other","requiresHumanReview":"yes"}`, nil), "hola"},
		"empty output":    {fixed("   ", nil), "hola"},
		"empty text":      {fixed(`{"intent":"other"}`, nil), "   "},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := New(tc.inf, time.Second)
			res, err := c.Classify(context.Background(), tc.text, domain.SenderOwner, domain.LanguageES, "B")
			if !errors.Is(err, ErrClassification) {
				t.Fatalf("err = %v; want ErrClassification", err)
			}
			if !reflect.DeepEqual(res, domain.FallbackAnalysis()) {
				t.Fatalf("want fallback analysis, got %+v", res)
			}
		})
	}
}

func TestClassify_InvalidInputs(t *testing.T) {
	c := New(fixed(`{"intent":"other"}`, nil), time.Second)

	if _, err := c.Classify(context.Background(), "hola", domain.SenderType("guest"), domain.LanguageES, "B"); !errors.Is(err, ErrClassification) {
		t.Fatalf("unknown sender: err = %v", err)
	}
	if _, err := c.Classify(context.Background(), "hola", domain.SenderOwner, domain.Language("fr"), "B"); !errors.Is(err, ErrClassification) {
		t.Fatalf("unknown language: err = %v", err)
	}

	var nilBackend Classifier
	res, err := nilBackend.Classify(context.Background(), "hola", domain.SenderOwner, domain.LanguageES, "B")
	if !errors.Is(err, ErrClassification) || !res.RequiresHumanReview {
		t.Fatalf("nil backend: %+v, %v", res, err)
	}
}

func TestClassify_TimeoutFallsBack(t *testing.T) {
	slow := InferFunc(func(ctx context.Context, _, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return `{"intent":"emergency","priority":"emergency"}`, nil
		}
	})
	c := New(slow, 20*time.Millisecond)

	start := time.Now()
	res, err := c.Classify(context.Background(), "hay humo en el pasillo", domain.SenderRenter, domain.LanguageES, "B")
	if !errors.Is(err, ErrClassification) || !strings.Contains(err.Error(), context.DeadlineExceeded.Error()) {
		t.Fatalf("err = %v; want classification error wrapping the deadline", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("Classify took %v; timeout not honoured", elapsed)
	}
	if res.Intent != domain.IntentOther || res.Priority != domain.PriorityMedium || res.RouteTo != domain.RouteAdmin || !res.RequiresHumanReview {
		t.Fatalf("want fallback, got %+v", res)
	}
}

func TestClassify_SingleAttempt(t *testing.T) {
	calls := 0
	c := New(InferFunc(func(context.Context, string, string) (string, error) {
		calls++
		return "", errors.New("503")
	}), time.Second)

	_, _ = c.Classify(context.Background(), "hola", domain.SenderOwner, domain.LanguageES, "B")
	if calls != 1 {
		t.Fatalf("inferrer calls = %d; want 1", calls)
	}
}
