package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRemote struct {
	summary string
	err     error
	input   string
}

func (f *fakeRemote) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	f.input = text
	return f.summary, f.err
}

func TestSummarizeEmptyInput(t *testing.T) {
	s := New(nil, nil, nil)
	if got := s.Summarize(context.Background(), "  \n "); got != EmptyInputSummary {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSummarizeUsesRemoteWhenAvailable(t *testing.T) {
	remote := &fakeRemote{summary: " abstract "}
	s := New(remote, nil, nil)

	long := strings.Repeat("word ", 400)
	if got := s.Summarize(context.Background(), long); got != "abstract" {
		t.Fatalf("unexpected summary %q", got)
	}
	if n := len([]rune(remote.input)); n > remoteInputChars {
		t.Fatalf("remote input not truncated: %d", n)
	}
}

func TestSummarizeFallsBackOnRemoteFailure(t *testing.T) {
	text := "The first sentence is long enough to count. The second sentence is also long enough."
	for _, remote := range []*fakeRemote{{err: errors.New("down")}, {summary: "   "}} {
		s := New(remote, nil, nil)
		got := s.Summarize(context.Background(), text)
		if got != text {
			t.Fatalf("expected both sentences in order, got %q", got)
		}
	}
}

func TestExtractiveKeepsDocumentOrder(t *testing.T) {
	text := strings.Join([]string{
		"Weather notes mention a quiet afternoon outside.",
		"Revenue revenue revenue grew while revenue targets held.",
		"Lunch was served in the main hall today.",
		"Revenue forecasts show revenue growth for revenue teams.",
		"The parking lot was repainted over the weekend.",
		"Revenue reports confirm revenue stability.",
		"Someone left an umbrella near the door.",
	}, " ")

	got := Extractive(text)
	parts := strings.SplitAfter(got, ". ")
	if len(parts) != 3 {
		t.Fatalf("expected 3 sentences, got %q", got)
	}
	last := -1
	for _, p := range parts {
		idx := strings.Index(text, strings.TrimSpace(p))
		if idx < 0 || idx <= last {
			t.Fatalf("sentences out of document order: %q", got)
		}
		last = idx
	}
	if !strings.Contains(got, "Revenue revenue revenue grew") {
		t.Fatalf("expected the densest sentence to be selected, got %q", got)
	}
}

func TestExtractiveShortSentencesReturnPrefix(t *testing.T) {
	if got := Extractive("Too short. Tiny."); got != "Too short. Tiny." {
		t.Fatalf("unexpected prefix %q", got)
	}

	long := strings.TrimSpace(strings.Repeat("Tiny bit. ", 40))
	got := Extractive(long)
	if got != long[:300]+"..." {
		t.Fatalf("expected truncated prefix with ellipsis, got %d chars", len(got))
	}
}

func TestSummarySize(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 3, 10: 3, 16: 4, 25: 5, 100: 5}
	for sentences, want := range cases {
		if got := summarySize(sentences); got != want {
			t.Fatalf("summarySize(%d) = %d, want %d", sentences, got, want)
		}
	}
}

func TestExtractiveMeasuresSentencesInCharacters(t *testing.T) {
	// 18 characters, 21 bytes: too short to be a candidate.
	text := "Ça coûte très peu. Été."
	if got := Extractive(text); got != text {
		t.Fatalf("expected the raw prefix, got %q", got)
	}
}
