package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/kirillkom/document-intelligence/internal/core/ports"
)

const ManifestFile = "index.json"

// ManifestSource reads a JSON array of file names, locally or over HTTP.
type ManifestSource struct {
	ref     string
	fetcher ports.SourceFetcher
}

func NewManifestSource(ref string, fetcher ports.SourceFetcher) *ManifestSource {
	return &ManifestSource{ref: ref, fetcher: fetcher}
}

func (s *ManifestSource) Name() string { return "manifest" }

func (s *ManifestSource) List(ctx context.Context) ([]string, error) {
	raw, err := s.fetcher.Fetch(ctx, s.ref)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return names, nil
}

// DirectorySource lists PDF files in a local directory in name order.
type DirectorySource struct {
	dir string
}

func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

func (s *DirectorySource) Name() string { return "directory" }

func (s *DirectorySource) List(context.Context) ([]string, error) {
	return ListPDFs(s.dir)
}

// ListPDFs returns the sorted PDF file names directly inside dir.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListingSource scrapes PDF links from a web server directory index page.
type ListingSource struct {
	url        string
	httpClient *http.Client
}

func NewListingSource(rawURL string, timeout time.Duration) *ListingSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ListingSource{url: rawURL, httpClient: &http.Client{Timeout: timeout}}
}

func (s *ListingSource) Name() string { return "listing" }

func (s *ListingSource) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create listing request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("listing status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return ParseListing(data, resp.Header.Get("Content-Type"))
}

// ParseListing extracts PDF file names from anchor hrefs of an HTML page.
func ParseListing(data []byte, contentType string) ([]string, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	names := make([]string, 0, 16)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			href = u.Path
		}
		name := path.Base(href)
		if IsPDF(name) {
			names = append(names, name)
		}
	})
	sort.Strings(names)
	return names, nil
}

// StaticSource is a fixed fallback list.
type StaticSource struct {
	names []string
}

func NewStaticSource(names []string) *StaticSource {
	return &StaticSource{names: names}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) List(context.Context) ([]string, error) {
	return append([]string(nil), s.names...), nil
}

// WriteManifest writes index.json listing the PDFs in dir and returns the names.
func WriteManifest(dir string) ([]string, error) {
	names, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	raw, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(raw, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return names, nil
}
