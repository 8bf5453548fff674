package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// --- Markets ---

type marketsResponse struct {
	Sort    markets.SortKey  `json:"sort"`
	Markets []markets.Market `json:"markets"`
	Totals  markets.Totals   `json:"totals"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	key, err := markets.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	all := s.live().All()
	writeJSON(w, http.StatusOK, marketsResponse{
		Sort:    key,
		Markets: markets.Sort(all, key),
		Totals:  markets.Summarize(all),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive := false
	if v := q.Get("inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "inactive must be a boolean")
			return
		}
		includeInactive = b
	}

	found := s.live().Search(q.Get("q"), includeInactive)
	if found == nil {
		found = []markets.Market{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": found})
}

// live overlays the dashboards of already followed pools on the catalogue.
func (s *Server) live() *markets.Registry {
	reg := s.markets
	for _, m := range s.markets.All() {
		snap, ok, err := s.pools.Peek(m.ID)
		if !ok || err != nil {
			continue
		}
		if d, ok := estimate.FromSnapshot(snap); ok {
			reg = reg.Update(m.WithDashboard(d))
		}
	}
	return reg
}

// --- Pools ---

type poolResponse struct {
	Status    string             `json:"status"`
	Pool      blend.PoolMeta     `json:"pool"`
	Dashboard estimate.Dashboard `json:"dashboard"`
	Reserves  []blend.Reserve    `json:"reserves"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

type loadingResponse struct {
	Status  string   `json:"status"`
	Pending []string `json:"pending"`
}

// snapshot resolves the pool of the request. It writes the error response
// and returns false when the pool cannot be served.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (source.Snapshot, bool) {
	id, err := blend.ParsePoolID(chi.URLParam(r, "poolId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return source.Snapshot{}, false
	}

	snap, err := s.pools.Latest(id)
	switch {
	case errors.Is(err, source.ErrNotFound):
		writeError(w, http.StatusNotFound, "pool not found")
		return source.Snapshot{}, false
	case err != nil:
		s.logger.Error("Failed to resolve pool", "pool", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "pool data unavailable")
		return source.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	d, ok := estimate.FromSnapshot(snap)
	if !ok {
		writeJSON(w, http.StatusAccepted, loadingResponse{Status: "loading", Pending: snap.Pending()})
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Status:    "ready",
		Pool:      *snap.Meta,
		Dashboard: d,
		Reserves:  snap.Pool.Reserves,
		FetchedAt: snap.FetchedAt,
	})
}

// --- Assistant ---

type assistantRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if chat.Normalize(req.Question) == "" {
		writeError(w, http.StatusBadRequest, chat.ErrEmptyQuestion.Error())
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var pool *estimate.PoolSummary
	if d, ok := estimate.FromSnapshot(snap); ok {
		pool = &d.Summary
	}

	reply := s.responder.Reply(strings.TrimSpace(req.Question), pool)
	s.metrics.AssistantReply(string(reply.Match))
	writeJSON(w, http.StatusOK, reply)
}
