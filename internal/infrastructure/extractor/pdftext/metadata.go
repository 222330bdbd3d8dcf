package pdftext

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

const (
	maxEmails  = 5
	maxAmounts = 5
	maxNames   = 10
)

var (
	authorMarker = regexp.MustCompile(`(?i)(?:Author|By)[:\s]+([A-Za-z ,.\-]+)`)
	emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	datePattern  = regexp.MustCompile(`(?i)\b(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{4}[/\-]\d{1,2}[/\-]\d{1,2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4})\b`)
	amountRegex  = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\b`)
	namePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`)
	headerWords  = regexp.MustCompile(`^(?i:Page|Chapter|Table|Figure|Section)\b`)
)

type info struct {
	Title, Author, Subject, Keywords, CreationDate, ModDate string
}

func readInfo(reader *pdf.Reader) (out info) {
	defer func() {
		if recover() != nil {
			out = info{}
		}
	}()
	dict := reader.Trailer().Key("Info")
	if dict.IsNull() {
		return info{}
	}
	return info{
		Title:        strings.TrimSpace(dict.Key("Title").Text()),
		Author:       strings.TrimSpace(dict.Key("Author").Text()),
		Subject:      strings.TrimSpace(dict.Key("Subject").Text()),
		Keywords:     strings.TrimSpace(dict.Key("Keywords").Text()),
		CreationDate: strings.TrimSpace(dict.Key("CreationDate").Text()),
		ModDate:      strings.TrimSpace(dict.Key("ModDate").Text()),
	}
}

// buildMetadata prefers the embedded Info dictionary and falls back to
// heuristics over the first page.
func buildMetadata(in info, firstPage string) domain.DocumentMetadata {
	meta := domain.DocumentMetadata{
		Title:            in.Title,
		Author:           in.Author,
		Subject:          in.Subject,
		Keywords:         splitKeywords(in.Keywords),
		CreationDate:     FormatPDFDate(in.CreationDate),
		ModificationDate: FormatPDFDate(in.ModDate),
	}
	if strings.TrimSpace(firstPage) == "" {
		return meta
	}

	if meta.Title == "" {
		meta.Title = guessTitle(firstPage)
	}
	if meta.Author == "" {
		meta.Author = guessAuthor(firstPage)
	}
	if meta.CreationDate == "" {
		meta.CreationDate = datePattern.FindString(firstPage)
	}
	meta.Entities = findEntities(firstPage)
	return meta
}

func guessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 5 && len(line) < 150 {
			return line
		}
	}
	return ""
}

func guessAuthor(text string) string {
	if m := authorMarker.FindStringSubmatch(text); len(m) > 1 {
		if author := strings.TrimSpace(m[1]); author != "" {
			return author
		}
	}
	return emailPattern.FindString(text)
}

func findEntities(text string) []domain.Entity {
	entities := make([]domain.Entity, 0, maxEmails+maxAmounts+maxNames)
	for _, email := range emailPattern.FindAllString(text, maxEmails) {
		entities = append(entities, domain.Entity{Type: "email", Value: email})
	}
	for _, amount := range amountRegex.FindAllString(text, maxAmounts) {
		entities = append(entities, domain.Entity{Type: "amount", Value: strings.TrimSpace(amount)})
	}

	seen := make(map[string]struct{}, maxNames)
	for _, name := range namePattern.FindAllString(text, -1) {
		if len(seen) == maxNames {
			break
		}
		if headerWords.MatchString(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entities = append(entities, domain.Entity{Type: "name", Value: name})
	}
	return entities
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	out := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// FormatPDFDate turns "D:YYYYMMDDHHmmSS..." into "YYYY-MM-DD HH:mm:SS".
// Values that do not look like PDF dates are returned unchanged.
func FormatPDFDate(raw string) string {
	clean := strings.TrimPrefix(raw, "D:")
	if len(clean) < 8 || !allDigits(clean[:8]) {
		return raw
	}
	out := clean[0:4] + "-" + clean[4:6] + "-" + clean[6:8]
	if len(clean) >= 14 && allDigits(clean[8:14]) {
		out += " " + clean[8:10] + ":" + clean[10:12] + ":" + clean[12:14]
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
