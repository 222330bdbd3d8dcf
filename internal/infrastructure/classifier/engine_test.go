package classifier

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type fakeZeroShot struct {
	scores map[string]float64
	err    error
	calls  int
	text   string
}

func (f *fakeZeroShot) ZeroShot(_ context.Context, text string, _ []string) (map[string]float64, error) {
	f.calls++
	f.text = text
	return f.scores, f.err
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "broken" }

func (panickingStrategy) Evaluate(context.Context, string) Outcome {
	panic("boom")
}

func TestClassifyEmptyTextReturnsOther(t *testing.T) {
	engine := New(nil, nil, nil, nil)

	for _, text := range []string{"", "   \n\t"} {
		got := engine.Classify(context.Background(), text)
		if !reflect.DeepEqual(got, domain.DefaultClassification()) {
			t.Fatalf("Classify(%q) = %v, want [{Other 1}]", text, got)
		}
	}
}

func TestClassifyNoSignalReturnsOther(t *testing.T) {
	engine := New(nil, nil, nil, nil)

	got := engine.Classify(context.Background(), "zebra yellow submarine")
	if !reflect.DeepEqual(got, domain.DefaultClassification()) {
		t.Fatalf("expected default classification, got %v", got)
	}
}

func TestClassifyStrongFinanceIndicators(t *testing.T) {
	engine := New(nil, nil, nil, nil)

	got := engine.Classify(context.Background(), "balance sheet quarterly report")
	if got[0].Label != string(domain.LabelFinance) {
		t.Fatalf("expected Finance first, got %v", got)
	}
	if got[0].Score < 0.8 {
		t.Fatalf("expected Finance score >= 0.8, got %v", got[0].Score)
	}
}

func TestClassifyIsDeterministicAndComplete(t *testing.T) {
	engine := New(NewRemoteStrategy(&fakeZeroShot{err: errors.New("offline")}, nil), nil, nil, nil)
	text := "The employee handbook describes the leave policy and the payroll calendar."

	first := engine.Classify(context.Background(), text)
	for i := 0; i < 5; i++ {
		if again := engine.Classify(context.Background(), text); !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic result: %v vs %v", first, again)
		}
	}

	if len(first) != len(domain.Labels) {
		t.Fatalf("expected full label set, got %v", first)
	}
	seen := map[string]bool{}
	for i, ls := range first {
		if ls.Score < 0 || ls.Score > 1 {
			t.Fatalf("score out of range: %v", ls)
		}
		if i > 0 && first[i-1].Score < ls.Score {
			t.Fatalf("not sorted descending: %v", first)
		}
		seen[ls.Label] = true
	}
	if len(seen) != len(domain.Labels) {
		t.Fatalf("duplicate labels: %v", first)
	}
	if first[0].Label != string(domain.LabelHR) {
		t.Fatalf("expected HR first, got %v", first)
	}
}

func TestClassifyTiesFollowLabelOrder(t *testing.T) {
	remote := &fakeZeroShot{scores: map[string]float64{"Tech": 0.4, "Legal": 0.4, "Finance": 0.4}}
	engine := NewEngine(nil, nil, nil, NewRemoteStrategy(remote, nil))

	got := engine.Classify(context.Background(), "zebra")
	want := []string{"Finance", "Legal", "Tech", "HR", "Contracts", "Other"}
	for i, label := range want {
		if got[i].Label != label {
			t.Fatalf("position %d: got %s want %s (%v)", i, got[i].Label, label, got)
		}
	}
}

func TestClassifyMergesRemoteByMaximum(t *testing.T) {
	remote := &fakeZeroShot{scores: map[string]float64{"Finance": 0.1, "Tech": 0.6, "Unknown": 0.9}}
	engine := New(NewRemoteStrategy(remote, nil), nil, nil, nil)

	got := engine.Classify(context.Background(), "balance sheet quarterly report")
	scores := map[string]float64{}
	for _, ls := range got {
		scores[ls.Label] = ls.Score
	}
	if scores["Finance"] < 0.8 {
		t.Fatalf("remote score must not lower keyword evidence, got %v", got)
	}
	if scores["Tech"] != 0.6 {
		t.Fatalf("expected remote Tech score to be kept, got %v", got)
	}
	if _, ok := scores["Unknown"]; ok {
		t.Fatalf("labels outside the fixed set must be ignored: %v", got)
	}
	if remote.text != "balance sheet quarterly report" {
		t.Fatalf("unexpected excerpt %q", remote.text)
	}
}

func TestClassifyRemoteExcerptIsBounded(t *testing.T) {
	remote := &fakeZeroShot{err: errors.New("offline")}
	engine := New(NewRemoteStrategy(remote, nil), nil, nil, nil)

	long := ""
	for len(long) < 2000 {
		long += "invoice   total\n"
	}
	engine.Classify(context.Background(), long)
	if n := len([]rune(remote.text)); n > remoteExcerptChars {
		t.Fatalf("excerpt too long: %d", n)
	}
	if remote.calls != 1 {
		t.Fatalf("expected one remote call, got %d", remote.calls)
	}
}

func TestClassifySurvivesPanickingStrategy(t *testing.T) {
	scorer := NewKeywordScorer(nil)
	engine := NewEngine(scorer, nil, nil, panickingStrategy{}, NewKeywordStrategy(scorer))

	got := engine.Classify(context.Background(), "balance sheet")
	if got[0].Label != string(domain.LabelFinance) {
		t.Fatalf("expected keyword tier to take over, got %v", got)
	}
}
