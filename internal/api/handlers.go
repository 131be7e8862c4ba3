package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
	"swipebraille/internal/trace"
	"swipebraille/internal/tracing"
)

// Resolution describes one dot set and what it maps to.
type Resolution struct {
	Pattern  braille.Pattern `json:"pattern"`
	Dots     []braille.Dot   `json:"dots"`
	Cell     string          `json:"cell"`
	Char     string          `json:"char,omitempty"`
	Resolved bool            `json:"resolved"`
}

// ResolveRequest names a dot set in exactly one of three ways.
type ResolveRequest struct {
	// Dots is a dot list such as "1,2,5" or "125".
	Dots *string `json:"dots,omitempty"`
	// Zones lists touched zones; aliases fold onto their dot.
	Zones []int `json:"zones,omitempty"`
	// Pattern is a six-character 0/1 pattern.
	Pattern *string `json:"pattern,omitempty"`
}

type tableResponse struct {
	Count   int             `json:"count"`
	Entries []braille.Entry `json:"entries"`
}

type layoutResponse struct {
	Config gesture.LayoutConfig `json:"config"`
	Bounds gesture.Rect         `json:"bounds"`
	Zones  []gesture.ZoneRect   `json:"zones"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// bodyError maps a body read or decode failure to a status.
func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) resolve(dots braille.DotSet) Resolution {
	res := Resolution{
		Pattern: dots.Pattern(),
		Dots:    dots.Dots(),
		Cell:    string(dots.Cell()),
	}
	if res.Dots == nil {
		res.Dots = []braille.Dot{}
	}
	res.Char, res.Resolved = s.tables.Table().Resolve(dots)
	s.metrics.ObserveChord(res.Resolved)
	return res
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	t := s.tables.Table()
	entries := t.Entries()
	if entries == nil {
		entries = []braille.Entry{}
	}
	writeJSON(w, http.StatusOK, tableResponse{Count: t.Len(), Entries: entries})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, layoutResponse{
		Config: s.cfg,
		Bounds: s.layout.Bounds(),
		Zones:  s.layout.Zones(),
	})
}

// handlePattern looks a single pattern up. Unlike resolve it reports an
// unmapped pattern as 404.
func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	p, err := braille.ParsePattern(mux.Vars(r)["pattern"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dots, _ := p.DotSet()
	res := s.resolve(dots)
	if !res.Resolved {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		bodyError(w, err)
		return
	}

	dots, err := req.dotSet()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.resolve(dots))
}

func (req ResolveRequest) dotSet() (braille.DotSet, error) {
	given := 0
	if req.Dots != nil {
		given++
	}
	if req.Zones != nil {
		given++
	}
	if req.Pattern != nil {
		given++
	}
	if given != 1 {
		return 0, errors.New("exactly one of dots, zones or pattern is required")
	}

	switch {
	case req.Dots != nil:
		return braille.ParseDots(*req.Dots)
	case req.Zones != nil:
		zones := make([]gesture.Zone, len(req.Zones))
		for i, z := range req.Zones {
			zones[i] = gesture.Zone(z)
		}
		return gesture.DotsForZones(zones...)
	default:
		p, err := braille.ParsePattern(*req.Pattern)
		if err != nil {
			return 0, err
		}
		return p.DotSet()
	}
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		bodyError(w, err)
		return
	}
	doc, err := trace.Parse(data)
	if err != nil {
		s.metrics.ReplayFailures.Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, trace.ErrInvalidTrace) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	log := s.logger.WithContext(r.Context())
	_, span := s.tracer.Start(r.Context(), "trace.replay", tracing.WithAttributes(
		tracing.Attr("trace.name", doc.Name),
		tracing.Attr("trace.events", len(doc.Events)),
	))
	defer span.End()

	res, err := trace.Replay(doc, s.tables.Table(), trace.ReplayOptions{
		Layout: s.cfg,
		Repeat: s.repeat,
		Logger: log.Logger,
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ReplayFailures.Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	span.SetAttributes(
		tracing.Attr("replay.chords", res.Chords),
		tracing.Attr("replay.unresolved", res.Unresolved),
		tracing.Attr("replay.commands", len(res.Commands)),
	)
	span.SetStatus(tracing.StatusOK, "")
	s.metrics.Replays.Inc()
	for _, c := range res.Commands {
		s.metrics.ObserveCommand(c.Command)
	}
	log.Debug("trace replayed", "name", doc.Name, "events", len(doc.Events), "chords", res.Chords)
	writeJSON(w, http.StatusOK, res)
}
