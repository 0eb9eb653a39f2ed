package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testServer(t *testing.T, svg string) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.svg")
	if svg != "" {
		if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &Server{SVGPath: path, Version: "test", Logf: func(string, ...any) {}}
}

// TestServeDocument: the rendered file comes back with the SVG content
// type.
func TestServeDocument(t *testing.T) {
	s := testServer(t, `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/map.svg")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<svg") {
		t.Errorf("body is not the document: %q", body)
	}
	if !strings.Contains(resp.Header.Get("Server"), "activity-heatmap/") {
		t.Errorf("missing server header: %q", resp.Header.Get("Server"))
	}
}

// TestMissingDocument404s before the first render.
func TestMissingDocument404s(t *testing.T) {
	s := testServer(t, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/map.svg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

// TestHeadLiveness answers HEAD / with 200 and no body.
func TestHeadLiveness(t *testing.T) {
	s := testServer(t, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Head(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HEAD / status = %d, want 200", resp.StatusCode)
	}
}

// TestIndexWrapsImage: the index page embeds the document.
func TestIndexWrapsImage(t *testing.T) {
	s := testServer(t, "<svg/>")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `src="/map.svg"`) {
		t.Errorf("index does not reference the document: %q", body)
	}
}
