// Package api serves the results of one pipeline run as read-only JSON.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/setlist-graph/pkg/collab"
	"github.com/gilchrisn/setlist-graph/pkg/pipeline"
	"github.com/gilchrisn/setlist-graph/pkg/similarity"
)

// Handlers answers queries against a finished pipeline result. The result
// is never modified, so handlers need no locking.
type Handlers struct {
	result *pipeline.Result
	nodes  []collab.NodeRow
	edges  []collab.EdgeRow
	logger zerolog.Logger
}

// NewHandlers precomputes the node and edge tables of res.
func NewHandlers(res *pipeline.Result, logger zerolog.Logger) *Handlers {
	return &Handlers{
		result: res,
		nodes:  collab.NodeTable(res.Graph, res.Partition),
		edges:  collab.EdgeTable(res.Graph, res.Partition),
		logger: logger,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, h.logger, "ok", map[string]interface{}{
		"run_id": h.result.Report.RunID,
		"nodes":  h.result.Graph.NumNodes(),
		"edges":  h.result.Graph.NumEdges(),
	})
}

// ListAliases returns the variant table, or a single resolution when the
// variant query parameter is present.
func (h *Handlers) ListAliases(w http.ResponseWriter, r *http.Request) {
	if variant := r.URL.Query().Get("variant"); variant != "" {
		writeSuccessResponse(w, h.logger, "Alias resolved", map[string]string{
			"variant":   variant,
			"canonical": h.result.Aliases.Resolve(variant),
		})
		return
	}
	table := h.result.Aliases.Table()
	page, limit := paginationParams(r)
	lo, hi := paginate(len(table), page, limit)
	writeSuccessResponse(w, h.logger, "Aliases retrieved", Page{Page: page, Limit: limit, Total: len(table), Items: table[lo:hi]})
}

// ListNodes returns the node table.
func (h *Handlers) ListNodes(w http.ResponseWriter, r *http.Request) {
	page, limit := paginationParams(r)
	lo, hi := paginate(len(h.nodes), page, limit)
	writeSuccessResponse(w, h.logger, "Nodes retrieved", Page{Page: page, Limit: limit, Total: len(h.nodes), Items: h.nodes[lo:hi]})
}

// ListEdges returns the edge table, optionally restricted to one community
// id or to "cross".
func (h *Handlers) ListEdges(w http.ResponseWriter, r *http.Request) {
	rows := h.edges
	if c := r.URL.Query().Get("community"); c != "" {
		id, err := parseCommunity(c)
		if err != nil {
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid community", err)
			return
		}
		rows = make([]collab.EdgeRow, 0)
		for _, row := range h.edges {
			if row.Community == id {
				rows = append(rows, row)
			}
		}
	}
	page, limit := paginationParams(r)
	lo, hi := paginate(len(rows), page, limit)
	writeSuccessResponse(w, h.logger, "Edges retrieved", Page{Page: page, Limit: limit, Total: len(rows), Items: rows[lo:hi]})
}

// ListCommunities returns every community with its members.
func (h *Handlers) ListCommunities(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, h.logger, "Communities retrieved", map[string]interface{}{
		"modularity":  h.result.Partition.Modularity,
		"communities": h.result.Partition.Communities,
	})
}

// GetCommunity returns one community by id.
func (h *Handlers) GetCommunity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["communityId"])
	comms := h.result.Partition.Communities
	if err != nil || id < 0 || id >= len(comms) {
		writeErrorResponse(w, h.logger, http.StatusNotFound, "Community not found", err)
		return
	}
	writeSuccessResponse(w, h.logger, "Community retrieved", comms[id])
}

// ListSimilarity returns the diagnostic pairs, optionally above min_score.
func (h *Handlers) ListSimilarity(w http.ResponseWriter, r *http.Request) {
	pairs := h.result.Similar
	if s := r.URL.Query().Get("min_score"); s != "" {
		bound, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid min_score", err)
			return
		}
		pairs = similarity.Above(pairs, bound)
	}
	page, limit := paginationParams(r)
	lo, hi := paginate(len(pairs), page, limit)
	writeSuccessResponse(w, h.logger, "Similarity pairs retrieved", Page{Page: page, Limit: limit, Total: len(pairs), Items: pairs[lo:hi]})
}

// GetReport returns the diagnostic report and the similarity histogram.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, h.logger, "Report retrieved", map[string]interface{}{
		"report":    h.result.Report,
		"histogram": h.result.Histogram,
	})
}

func parseCommunity(s string) (int, error) {
	if s == "cross" {
		return collab.CrossCommunity, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("community must be a non-negative id or \"cross\", got %q", s)
	}
	return id, nil
}
