package source

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type Kind int

const (
	KindRemote Kind = iota
	KindInline
	KindLocal
)

// Location is a normalized document reference.
type Location struct {
	Kind Kind
	URL  string
	Path string
	Data []byte
}

// Resolver normalizes the reference forms accepted by the extractor.
type Resolver struct {
	publicBaseURL string
	dataDir       string
}

func NewResolver(publicBaseURL, dataDir string) *Resolver {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Resolver{
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		dataDir:       dataDir,
	}
}

func (r *Resolver) Resolve(ref string) (Location, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Location{}, domain.WrapError(domain.ErrInvalidInput, "resolve reference", fmt.Errorf("empty reference"))
	}

	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Location{Kind: KindRemote, URL: ref}, nil
	case strings.HasPrefix(lower, "data:"):
		data, err := decodeDataURL(ref)
		if err != nil {
			return Location{}, domain.WrapError(domain.ErrInvalidInput, "resolve reference", err)
		}
		return Location{Kind: KindInline, Data: data}, nil
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return Location{}, domain.WrapError(domain.ErrInvalidInput, "resolve reference", err)
		}
		return Location{Kind: KindLocal, Path: filepath.FromSlash(u.Path)}, nil
	}

	if filepath.IsAbs(ref) {
		if _, err := os.Stat(ref); err == nil {
			return Location{Kind: KindLocal, Path: ref}, nil
		}
	}
	return r.resolveRelative(ref), nil
}

// resolveRelative maps "/data/x.pdf", "./data/x.pdf" and "x.pdf" onto the
// public base URL when one is configured, otherwise onto the data directory.
func (r *Resolver) resolveRelative(ref string) Location {
	clean := strings.TrimPrefix(ref, "./")
	if r.publicBaseURL != "" {
		return Location{Kind: KindRemote, URL: r.publicBaseURL + "/" + strings.TrimPrefix(clean, "/")}
	}

	clean = strings.TrimPrefix(clean, "/")
	clean = strings.TrimPrefix(clean, "data/")
	return Location{Kind: KindLocal, Path: filepath.Join(r.dataDir, filepath.FromSlash(clean))}
}

func decodeDataURL(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data url")
	}
	header := ref[len("data:"):comma]
	payload := ref[comma+1:]
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return []byte(text), nil
}
