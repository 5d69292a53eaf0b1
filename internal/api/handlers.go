package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/kessler/kesslergo/internal/conjunction"
	"github.com/kessler/kesslergo/internal/correction"
	"github.com/kessler/kesslergo/internal/state"
	"github.com/kessler/kesslergo/internal/tle"
)

const (
	maxRequestBytes = 4 << 20

	defaultMinutes     = 360
	defaultThresholdKM = 5.0
	defaultCatalogMax  = 25
)

var validate = validator.New()

type elementRecord struct {
	Name    string `json:"name"`
	NoradID int    `json:"norad_id"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
}

type elementResponse struct {
	Count   int             `json:"count"`
	Records []elementRecord `json:"records"`
}

func toRecords(sets []tle.ElementSet) []elementRecord {
	records := make([]elementRecord, len(sets))
	for i, s := range sets {
		records[i] = elementRecord{Name: s.Name, NoradID: s.NoradID, Line1: s.Line1, Line2: s.Line2}
	}
	return records
}

func (s *Server) handleTLE(w http.ResponseWriter, r *http.Request) {
	noradID, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil || noradID <= 0 {
		writeError(w, http.StatusBadRequest, "norad_id must be a positive integer")
		return
	}

	set, err := s.fetcher.FetchByNorad(r.Context(), noradID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetching element set: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, elementResponse{Count: 1, Records: toRecords([]tle.ElementSet{set})})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	limit := defaultCatalogMax
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	sets, err := s.fetcher.FetchCatalog(r.Context(), name, limit)
	if err != nil {
		if errors.Is(err, tle.ErrUnknownCatalog) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "loading catalog: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, elementResponse{Count: len(sets), Records: toRecords(sets)})
}

type propagateRequest struct {
	Line1   string `json:"line1" validate:"required,len=69"`
	Line2   string `json:"line2" validate:"required,len=69"`
	Minutes int    `json:"minutes" validate:"omitempty,min=1,max=1440"`
}

type propagateResponse struct {
	States state.Trajectory `json:"states"`
}

// elementSetFromLines builds an unnamed element set from raw lines,
// validating them through the standard parser.
func elementSetFromLines(line1, line2 string) (tle.ElementSet, error) {
	return tle.NewElementSet("", line1, line2)
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	var req propagateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Minutes == 0 {
		req.Minutes = defaultMinutes
	}

	set, err := elementSetFromLines(req.Line1, req.Line2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid element set: "+err.Error())
		return
	}

	traj, err := s.driver.Propagate(r.Context(), set, req.Minutes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "propagation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, propagateResponse{States: traj})
}

type predictRequest struct {
	Line1    string `json:"line1" validate:"required,len=69"`
	Line2    string `json:"line2" validate:"required,len=69"`
	Minutes  int    `json:"minutes" validate:"omitempty,min=1,max=1440"`
	Fallback *bool  `json:"use_baseline_if_missing"`
}

type predictResponse struct {
	States state.Trajectory `json:"states"`
	Source string           `json:"source"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Minutes == 0 {
		req.Minutes = defaultMinutes
	}
	fallback := true
	if req.Fallback != nil {
		fallback = *req.Fallback
	}

	set, err := elementSetFromLines(req.Line1, req.Line2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid element set: "+err.Error())
		return
	}

	baseline, err := s.driver.Propagate(r.Context(), set, req.Minutes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "propagation failed: "+err.Error())
		return
	}

	refined, source, err := s.corrections.Refine(baseline, fallback)
	if err != nil {
		if errors.Is(err, correction.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "correction failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{States: refined, Source: string(source)})
}

type riskTarget struct {
	Name   string           `json:"name" validate:"required"`
	States state.Trajectory `json:"states" validate:"required,min=1"`
}

type riskRequest struct {
	Debris      riskTarget   `json:"debris" validate:"required"`
	Targets     []riskTarget `json:"targets" validate:"required,min=1,dive"`
	ThresholdKM float64      `json:"threshold_km" validate:"omitempty,gt=0"`
}

type riskResponse struct {
	Approaches []conjunction.Event `json:"approaches"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.ThresholdKM == 0 {
		req.ThresholdKM = defaultThresholdKM
	}

	targets := make(map[string]state.Trajectory, len(req.Targets))
	for _, t := range req.Targets {
		targets[t.Name] = t.States
	}

	events, err := conjunction.Rank(r.Context(), req.Debris.States, targets, req.ThresholdKM)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "risk analysis failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, riskResponse{Approaches: events})
}

type assessRequest struct {
	DebrisNoradID int     `json:"debris_norad_id" validate:"required,min=1"`
	Minutes       int     `json:"minutes" validate:"omitempty,min=1,max=1440"`
	UseCorrection bool    `json:"use_correction"`
	ThresholdKM   float64 `json:"threshold_km" validate:"omitempty,gt=0"`
}

type assessResponse struct {
	Debris     string              `json:"debris"`
	Source     string              `json:"source"`
	Approaches []conjunction.Event `json:"approaches"`
	Assessed   int                 `json:"assessed"`
	Skipped    int                 `json:"skipped"`
}

// handleAssess runs the full pipeline: debris propagation, optional
// correction, fleet propagation, conjunction ranking.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil || len(s.fleet.Assets) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no fleet configured")
		return
	}

	var req assessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Minutes == 0 {
		req.Minutes = defaultMinutes
	}
	scale := req.ThresholdKM
	if scale == 0 {
		scale = s.fleet.DistanceScaleKM
	}
	if scale == 0 {
		scale = defaultThresholdKM
	}

	debrisSet, ok := s.store.Lookup(req.DebrisNoradID)
	if !ok {
		var err error
		debrisSet, err = s.fetcher.FetchByNorad(r.Context(), req.DebrisNoradID)
		if err != nil {
			writeError(w, http.StatusBadGateway, "fetching debris element set: "+err.Error())
			return
		}
	}

	baseline, err := s.driver.Propagate(r.Context(), debrisSet, req.Minutes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "debris propagation failed: "+err.Error())
		return
	}

	debris := baseline
	source := correction.SourceBaseline
	if req.UseCorrection {
		debris, source, err = s.corrections.Refine(baseline, true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "correction failed: "+err.Error())
			return
		}
	}

	sets := make([]tle.ElementSet, 0, len(s.fleet.Assets))
	for _, a := range s.fleet.Assets {
		set, ok := s.store.Lookup(a.NoradID)
		if !ok {
			s.logger.Warn("fleet asset has no element set loaded", "name", a.Name, "norad_id", a.NoradID)
			continue
		}
		set.Name = a.Name
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no element sets loaded for fleet assets")
		return
	}

	targets, assessed, _ := s.pool.PropagateBatch(r.Context(), sets, req.Minutes)
	if assessed == 0 {
		writeError(w, http.StatusUnprocessableEntity, "fleet propagation failed for every asset")
		return
	}

	events, err := conjunction.Rank(r.Context(), debris, targets, scale)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "risk analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, assessResponse{
		Debris:     debrisSet.Name,
		Source:     string(source),
		Approaches: events,
		Assessed:   assessed,
		Skipped:    len(s.fleet.Assets) - assessed,
	})
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	if s.fleet == nil {
		writeError(w, http.StatusNotFound, "no fleet configured")
		return
	}
	writeJSON(w, http.StatusOK, s.fleet)
}
