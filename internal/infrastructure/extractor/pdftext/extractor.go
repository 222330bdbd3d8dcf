package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/textproc"
)

const snippetSentences = 3

type Extractor struct {
	fetcher ports.SourceFetcher
	logger  *slog.Logger
}

func NewExtractor(fetcher ports.SourceFetcher, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{fetcher: fetcher, logger: logger}
}

// Extract returns the full text, page count and metadata of a PDF. Pages that
// fail to decode are skipped; a document that cannot be opened is an error.
func (e *Extractor) Extract(ctx context.Context, ref string) (domain.Extraction, error) {
	reader, err := e.open(ctx, ref)
	if err != nil {
		return domain.Extraction{}, err
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("pdf_page_skipped", "ref", ref, "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	text := strings.TrimSpace(strings.Join(pages, " "))
	firstPage := ""
	if len(pages) > 0 {
		firstPage = pages[0]
	}
	return domain.Extraction{
		Text:      text,
		PageCount: pageCount,
		Metadata:  buildMetadata(readInfo(reader), firstPage),
	}, nil
}

func (e *Extractor) ExtractFullText(ctx context.Context, ref string) (string, error) {
	out, err := e.Extract(ctx, ref)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// ExtractSnippet reads only the first page. It never fails.
func (e *Extractor) ExtractSnippet(ctx context.Context, ref string) string {
	reader, err := e.open(ctx, ref)
	if err != nil {
		e.logger.Debug("pdf_snippet_unavailable", "ref", ref, "error", err)
		return ""
	}
	if reader.NumPage() < 1 {
		return ""
	}
	text, err := pageText(reader, 1)
	if err != nil {
		return ""
	}
	return textproc.FirstSentences(text, snippetSentences)
}

func (e *Extractor) open(ctx context.Context, ref string) (*pdf.Reader, error) {
	data, err := e.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "load pdf", err)
	}
	reader, err := newReader(data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "open pdf", err)
	}
	return reader, nil
}

func newReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText shields callers from panics inside the PDF decoder.
func pageText(reader *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("decode page %d: %v", index, r)
		}
	}()
	page := reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
