package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/justinlevinedotme/pcmgen/internal/registry"
)

func mirrorSource(url string) registry.Source {
	return registry.Source{
		ID:          "mirror",
		Mode:        registry.ModeMirror,
		PackagesURL: url,
	}
}

func TestMirrorFetcherObjectForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"packages": [
			{"identifier": "com.example.lib", "name": "Example Lib"},
			{"identifier": "com.example.other", "name": "Other"}
		]}`)
	}))
	defer srv.Close()

	f := NewMirrorFetcher(&http.Client{})
	pkgs, err := f.Fetch(context.Background(), mirrorSource(srv.URL))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("Expected 2 packages, got %d", len(pkgs))
	}
	if pkgs[0].Fields["identifier"] != "com.example.lib" {
		t.Errorf("Unexpected first package: %v", pkgs[0].Fields)
	}
}

func TestMirrorFetcherArrayForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"identifier": "com.example.lib", "name": "Example Lib"}]`)
	}))
	defer srv.Close()

	f := NewMirrorFetcher(&http.Client{})
	pkgs, err := f.Fetch(context.Background(), mirrorSource(srv.URL))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("Expected 1 package, got %d", len(pkgs))
	}
}

func TestMirrorFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewMirrorFetcher(&http.Client{})
	if _, err := f.Fetch(context.Background(), mirrorSource(srv.URL)); err == nil {
		t.Fatal("Expected error for 404 response, got nil")
	}
}

func TestMirrorFetcherRejectsScalarDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"not a package list"`)
	}))
	defer srv.Close()

	f := NewMirrorFetcher(&http.Client{})
	if _, err := f.Fetch(context.Background(), mirrorSource(srv.URL)); err == nil {
		t.Fatal("Expected error for scalar document, got nil")
	}
}
