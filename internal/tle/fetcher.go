package tle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNASABaseURL  = "https://api.nasa.gov"
	defaultNASATLEPath  = "/tle"
	defaultCelesTrakURL = "https://celestrak.org/NORAD/elements/gp.php"

	// maxBodyBytes bounds upstream responses; full debris catalogs are
	// well under this.
	maxBodyBytes = 50 << 20
)

// CatalogGroups maps friendly debris catalog names to CelesTrak GROUP
// query values.
var CatalogGroups = map[string]string{
	"fengyun1c":  "1999-025",
	"iridium33":  "iridium-33-debris",
	"cosmos1408": "cosmos-1408-debris",
}

// ErrUnknownCatalog is returned by FetchCatalog for a name outside
// CatalogGroups.
var ErrUnknownCatalog = errors.New("unknown debris catalog")

// FetcherConfig holds element-set source configuration.
type FetcherConfig struct {
	NASABaseURL   string
	NASATLEPath   string
	NASAAPIKey    string
	CelesTrakURL  string
	AllowFallback bool // fall back to CelesTrak when the NASA endpoint fails
}

// Fetcher retrieves element sets from the NASA TLE API with a CelesTrak
// fallback, normalizing both into ElementSet values.
type Fetcher struct {
	cfg        FetcherConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. Zero-value config fields get defaults.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.NASABaseURL == "" {
		cfg.NASABaseURL = defaultNASABaseURL
	}
	if cfg.NASATLEPath == "" {
		cfg.NASATLEPath = defaultNASATLEPath
	}
	if cfg.CelesTrakURL == "" {
		cfg.CelesTrakURL = defaultCelesTrakURL
	}
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchByNorad retrieves the element set for a single NORAD catalog ID.
// The NASA endpoint is tried first; on any failure the CelesTrak CATNR
// query is used when fallback is enabled.
func (f *Fetcher) FetchByNorad(ctx context.Context, noradID int) (ElementSet, error) {
	set, err := f.fetchNASA(ctx, noradID)
	if err == nil {
		return set, nil
	}
	f.logger.Warn("NASA TLE fetch failed", "norad_id", noradID, "error", err)

	if !f.cfg.AllowFallback {
		return ElementSet{}, fmt.Errorf("NASA TLE endpoint unavailable and fallback disabled: %w", err)
	}

	set, err = f.fetchCelesTrakCATNR(ctx, noradID)
	if err != nil {
		return ElementSet{}, fmt.Errorf("celestrak fallback for NORAD %d: %w", noradID, err)
	}
	return set, nil
}

// FetchCatalog retrieves up to limit element sets from a named debris
// catalog group.
func (f *Fetcher) FetchCatalog(ctx context.Context, name string, limit int) ([]ElementSet, error) {
	group, ok := CatalogGroups[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, name)
	}

	q := url.Values{"GROUP": {group}, "FORMAT": {"TLE"}}
	body, err := f.get(ctx, f.cfg.CelesTrakURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching catalog %q: %w", name, err)
	}

	sets, err := Parse(strings.NewReader(string(body)), f.logger)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %q: %w", name, err)
	}
	if limit > 0 && len(sets) > limit {
		sets = sets[:limit]
	}
	return sets, nil
}

// nasaRecord mirrors the assorted field spellings the NASA TLE endpoint
// has been observed to return.
type nasaRecord struct {
	Name     string `json:"name"`
	NameUC   string `json:"NAME"`
	Line1    string `json:"line1"`
	Line1UC  string `json:"TLE_LINE1"`
	Line2    string `json:"line2"`
	Line2UC  string `json:"TLE_LINE2"`
	Embedded struct {
		Line1 string `json:"line1"`
		Line2 string `json:"line2"`
	} `json:"tle"`
}

func (r nasaRecord) lines() (string, string) {
	line1 := firstNonEmpty(r.Line1UC, r.Line1, r.Embedded.Line1)
	line2 := firstNonEmpty(r.Line2UC, r.Line2, r.Embedded.Line2)
	return line1, line2
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// fetchNASA queries the NASA TLE endpoint and normalizes its response.
// The endpoint has served several ad-hoc shapes: an object with a
// "member" list, an object with a "records" list, a bare object, or a
// bare list.
func (f *Fetcher) fetchNASA(ctx context.Context, noradID int) (ElementSet, error) {
	q := url.Values{
		"api_key": {f.cfg.NASAAPIKey},
		"NORAD":   {strconv.Itoa(noradID)},
	}
	body, err := f.get(ctx, f.cfg.NASABaseURL+f.cfg.NASATLEPath+"?"+q.Encode())
	if err != nil {
		return ElementSet{}, err
	}

	var records []nasaRecord
	var envelope struct {
		Member  []nasaRecord `json:"member"`
		Records []nasaRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && (len(envelope.Member) > 0 || len(envelope.Records) > 0) {
		records = append(envelope.Member, envelope.Records...)
	} else {
		var single nasaRecord
		if err := json.Unmarshal(body, &single); err == nil {
			records = []nasaRecord{single}
		} else if err := json.Unmarshal(body, &records); err != nil {
			return ElementSet{}, fmt.Errorf("unrecognized NASA TLE response: %w", err)
		}
	}

	for _, rec := range records {
		line1, line2 := rec.lines()
		if line1 == "" || line2 == "" {
			continue
		}
		name := firstNonEmpty(rec.NameUC, rec.Name, fmt.Sprintf("NORAD-%d", noradID))
		set, err := NewElementSet(name, line1, line2)
		if err != nil {
			return ElementSet{}, fmt.Errorf("NASA record for NORAD %d: %w", noradID, err)
		}
		return set, nil
	}
	return ElementSet{}, fmt.Errorf("no TLE found for NORAD %d", noradID)
}

// fetchCelesTrakCATNR queries CelesTrak for a single object in TLE text
// format.
func (f *Fetcher) fetchCelesTrakCATNR(ctx context.Context, noradID int) (ElementSet, error) {
	q := url.Values{"CATNR": {strconv.Itoa(noradID)}, "FORMAT": {"TLE"}}
	body, err := f.get(ctx, f.cfg.CelesTrakURL+"?"+q.Encode())
	if err != nil {
		return ElementSet{}, err
	}

	sets, err := Parse(strings.NewReader(string(body)), f.logger)
	if err != nil {
		return ElementSet{}, err
	}
	if len(sets) == 0 {
		return ElementSet{}, fmt.Errorf("no TLE found for NORAD %d", noradID)
	}
	return sets[0], nil
}

// get performs a bounded HTTP GET.
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching element sets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL.Host)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)
	}
	return body, nil
}
