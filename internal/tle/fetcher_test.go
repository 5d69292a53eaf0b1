package tle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

func issText() string {
	return "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
}

// TestFetchByNoradNASAMemberSchema verifies the "member" envelope shape.
func TestFetchByNoradNASAMemberSchema(t *testing.T) {
	nasa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("NORAD"); got != "25544" {
			t.Errorf("NORAD query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"member":[{"NAME":"ISS (ZARYA)","TLE_LINE1":"` + issLine1 + `","TLE_LINE2":"` + issLine2 + `"}]}`))
	}))
	defer nasa.Close()

	f := NewFetcher(FetcherConfig{NASABaseURL: nasa.URL, NASATLEPath: "/"}, testLogger)
	set, err := f.FetchByNorad(context.Background(), 25544)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.NoradID != 25544 || set.Name != "ISS (ZARYA)" || set.Line1 != issLine1 {
		t.Errorf("unexpected element set: %+v", set)
	}
	if set.Epoch.Year() != 2024 {
		t.Errorf("epoch year = %d, want 2024", set.Epoch.Year())
	}
}

// TestFetchByNoradNASAFlatSchema verifies a bare-object response with
// lowercase field names.
func TestFetchByNoradNASAFlatSchema(t *testing.T) {
	nasa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"ISS (ZARYA)","tle":{"line1":"` + issLine1 + `","line2":"` + issLine2 + `"}}`))
	}))
	defer nasa.Close()

	f := NewFetcher(FetcherConfig{NASABaseURL: nasa.URL, NASATLEPath: "/"}, testLogger)
	set, err := f.FetchByNorad(context.Background(), 25544)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Line2 != issLine2 {
		t.Errorf("line2 = %q", set.Line2)
	}
}

// TestFetchByNoradFallback verifies the CelesTrak fallback when the NASA
// endpoint errors.
func TestFetchByNoradFallback(t *testing.T) {
	nasa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer nasa.Close()

	ct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("CATNR"); got != "25544" {
			t.Errorf("CATNR query = %q", got)
		}
		w.Write([]byte(issText()))
	}))
	defer ct.Close()

	f := NewFetcher(FetcherConfig{
		NASABaseURL:   nasa.URL,
		NASATLEPath:   "/",
		CelesTrakURL:  ct.URL,
		AllowFallback: true,
	}, testLogger)

	set, err := f.FetchByNorad(context.Background(), 25544)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.NoradID != 25544 {
		t.Errorf("NoradID = %d", set.NoradID)
	}
}

// TestFetchByNoradFallbackDisabled verifies the hard error when fallback
// is off.
func TestFetchByNoradFallbackDisabled(t *testing.T) {
	nasa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer nasa.Close()

	f := NewFetcher(FetcherConfig{NASABaseURL: nasa.URL, NASATLEPath: "/"}, testLogger)
	if _, err := f.FetchByNorad(context.Background(), 25544); err == nil {
		t.Fatal("expected error with fallback disabled")
	}
}

// TestFetchCatalog verifies group resolution and the limit.
func TestFetchCatalog(t *testing.T) {
	body := issText() + issText() + issText()
	ct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("GROUP"); got != "1999-025" {
			t.Errorf("GROUP query = %q", got)
		}
		w.Write([]byte(body))
	}))
	defer ct.Close()

	f := NewFetcher(FetcherConfig{CelesTrakURL: ct.URL}, testLogger)
	sets, err := f.FetchCatalog(context.Background(), "fengyun1c", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 sets after limit, got %d", len(sets))
	}
}

// TestFetchCatalogUnknown verifies the typed error for bad catalog names.
func TestFetchCatalogUnknown(t *testing.T) {
	f := NewFetcher(FetcherConfig{}, testLogger)
	_, err := f.FetchCatalog(context.Background(), "nonexistent", 10)
	if !errors.Is(err, ErrUnknownCatalog) {
		t.Fatalf("expected ErrUnknownCatalog, got %v", err)
	}
}

// TestFetcherBodyLimit verifies that oversized responses are rejected
// instead of consuming unbounded memory.
func TestFetcherBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("A", 1024*1024)
		for i := 0; i < 52; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{CelesTrakURL: server.URL}, testLogger)
	_, err := f.FetchCatalog(context.Background(), "iridium33", 10)
	if err == nil {
		t.Fatal("expected error for oversized response, got nil")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}

// TestParseBareTwoLine verifies that a name-less TLE pair parses with the
// placeholder name.
func TestParseBareTwoLine(t *testing.T) {
	sets, err := Parse(strings.NewReader(issLine1+"\n"+issLine2+"\n"), testLogger)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("expected 1 set, got %d", len(sets))
	}
	if sets[0].Name != "UNKNOWN" || sets[0].NoradID != 25544 {
		t.Errorf("unexpected set: %+v", sets[0])
	}
}

// TestParseSkipsMalformed verifies malformed entries are skipped without
// aborting the whole parse.
func TestParseSkipsMalformed(t *testing.T) {
	text := "GARBAGE LINE\nMORE GARBAGE\n" + issText()
	sets, err := Parse(strings.NewReader(text), testLogger)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sets) != 1 || sets[0].NoradID != 25544 {
		t.Fatalf("expected the one valid set, got %+v", sets)
	}
}
