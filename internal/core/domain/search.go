package domain

type SearchFilter struct {
	Category string
}

type SearchResult struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Confidence     float64 `json:"confidence"`
	RelevanceScore float64 `json:"relevanceScore"`
	Snippet        string  `json:"snippet"`
	Path           string  `json:"path"`
}

// IndexedDocument is the unit stored by the search index.
type IndexedDocument struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Path       string  `json:"path"`
	Title      string  `json:"title,omitempty"`
}

// IndexedFrom projects a processed document into the search index shape.
// The snippet is preferred over the full text, matching what the dashboard shows.
func IndexedFrom(doc ProcessedDocument) IndexedDocument {
	text := doc.Snippet
	if text == "" {
		text = doc.Text
	}
	category := doc.Category
	if category == "" {
		category = CategoryUncategorized
	}
	return IndexedDocument{
		ID:         doc.ID,
		Name:       doc.Name,
		Text:       text,
		Category:   category,
		Confidence: doc.ConfidenceScore,
		Path:       doc.Path,
		Title:      doc.Metadata.Title,
	}
}

type ScoredSentence struct {
	Sentence string `json:"sentence"`
	Score    int    `json:"score"`
}

type QAResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Snippets []ScoredSentence `json:"snippets"`
	Source   string           `json:"source,omitempty"`
}

// NoAnswerFound is the answer text used when no sentence overlaps the question.
const NoAnswerFound = "No direct answer found in the document."
