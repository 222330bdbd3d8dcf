package domain

import "time"

type ProcessingStatus string

const (
	StatusIdle       ProcessingStatus = "idle"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusError      ProcessingStatus = "error"
)

// CanTransition reports whether a document may move from s to next.
// Completed and failed documents may be picked up again for reprocessing.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	switch s {
	case "", StatusIdle:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusError
	case StatusCompleted, StatusError:
		return next == StatusProcessing
	default:
		return false
	}
}

// CategoryUncategorized marks a document whose category was never set by a person.
const CategoryUncategorized = "Uncategorized"

type Source struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// CacheKey is the composite key used by the document cache.
func (s Source) CacheKey() string {
	return s.Path + ":" + s.Name
}

type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type DocumentMetadata struct {
	Title            string   `json:"title,omitempty"`
	Author           string   `json:"author,omitempty"`
	Subject          string   `json:"subject,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	CreationDate     string   `json:"creationDate,omitempty"`
	ModificationDate string   `json:"modificationDate,omitempty"`
	Entities         []Entity `json:"entities,omitempty"`
}

type ProcessedDocument struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Path             string           `json:"path"`
	Text             string           `json:"text"`
	Snippet          string           `json:"snippet"`
	Summary          string           `json:"summary"`
	Category         string           `json:"category"`
	Classification   string           `json:"classification"`
	ConfidenceScore  float64          `json:"confidenceScore"`
	Classifications  []LabelScore     `json:"classifications"`
	PageCount        int              `json:"pageCount"`
	Metadata         DocumentMetadata `json:"metadata"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	Error            string           `json:"error,omitempty"`
	ProcessedAt      time.Time        `json:"processedAt"`
}

func (d ProcessedDocument) Source() Source {
	return Source{Name: d.Name, Path: d.Path}
}

// CategoryPinned reports whether the category was chosen by a person and must
// survive automated reclassification.
func (d ProcessedDocument) CategoryPinned() bool {
	return d.Category != "" && d.Category != CategoryUncategorized
}

// ApplyClassification stores a ranked classification result. Category follows
// the top label only while it is still empty or Uncategorized.
func (d *ProcessedDocument) ApplyClassification(ranked []LabelScore) {
	top := LabelScore{Label: CategoryUncategorized}
	if len(ranked) > 0 {
		top = ranked[0]
	}
	d.Classifications = ranked
	d.Classification = top.Label
	d.ConfidenceScore = top.Score
	if !d.CategoryPinned() {
		d.Category = top.Label
	}
}

// Extraction is the raw output of the text extractor.
type Extraction struct {
	Text      string
	PageCount int
	Metadata  DocumentMetadata
}

type EventType string

const (
	EventDocumentProcessing EventType = "document.processing"
	EventDocumentProcessed  EventType = "document.processed"
	EventDocumentFailed     EventType = "document.failed"
)

// DocumentEvent is emitted once per document state change.
type DocumentEvent struct {
	Type     EventType         `json:"type"`
	Document ProcessedDocument `json:"document"`
}
