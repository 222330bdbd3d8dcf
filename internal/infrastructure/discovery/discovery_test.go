package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type stubLister struct {
	name  string
	names []string
	err   error
}

func (s stubLister) Name() string { return s.name }

func (s stubLister) List(context.Context) ([]string, error) { return s.names, s.err }

type bytesFetcher map[string][]byte

func (f bytesFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, ok := f[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestChainUsesFirstNonEmptySource(t *testing.T) {
	chain := NewChain(nil,
		stubLister{name: "manifest", err: errors.New("missing")},
		stubLister{name: "directory", names: []string{"notes.txt"}},
		stubLister{name: "static", names: []string{"b.pdf", "a.PDF", "b.pdf", "/x/c.pdf"}},
	)

	sources, err := chain.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	var got []string
	for _, s := range sources {
		got = append(got, s.Path)
	}
	want := []string{"/data/b.pdf", "/data/a.PDF", "/data/c.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
}

func TestChainReturnsEmptyWhenNothingFound(t *testing.T) {
	sources, err := NewChain(nil, stubLister{name: "static"}).Discover(context.Background())
	if err != nil || len(sources) != 0 {
		t.Fatalf("expected empty result, got %v, %v", sources, err)
	}
}

func TestManifestSource(t *testing.T) {
	src := NewManifestSource("/data/index.json", bytesFetcher{"/data/index.json": []byte(`["z.pdf","a.pdf"]`)})
	names, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"z.pdf", "a.pdf"}) {
		t.Fatalf("manifest order must be preserved, got %v", names)
	}

	bad := NewManifestSource("m", bytesFetcher{"m": []byte(`{"files":1}`)})
	if _, err := bad.List(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDirectorySourceAndManifestWriter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.pdf", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	names, err := NewDirectorySource(dir).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a.pdf", "b.pdf"}) {
		t.Fatalf("unexpected names %v", names)
	}

	written, err := WriteManifest(dir)
	if err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if !reflect.DeepEqual(decoded, written) {
		t.Fatalf("manifest %v does not match %v", decoded, written)
	}
}

func TestListingSourceParsesAutoindex(t *testing.T) {
	page := `<html><head><meta charset="iso-8859-1"></head><body>
<a href="../">Parent</a>
<a href="report%20q1.pdf">report q1.pdf</a>
<a href="/data/contract.PDF?download=1">contract</a>
<a href="notes.txt">notes</a>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	names, err := NewListingSource(server.URL+"/data/", time.Second).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"contract.PDF", "report q1.pdf"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
}
