package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/streakhq/curator/internal/contracts"
)

// ListMarkets returns scheduled and curator instances
// GET /api/curator/markets?status=OPEN
func (h *CuratorHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	status := contracts.InstanceStatus(strings.ToUpper(r.URL.Query().Get("status")))

	instances, err := h.svc.Instances(r.Context(), status)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list instances")
		respondError(w, errorStatus(err), "Failed to list markets")
		return
	}
	if instances == nil {
		instances = []contracts.MarketInstance{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    instances,
		"count":   len(instances),
	})
}

// GetMarket returns one instance
// GET /api/curator/markets/{id}
func (h *CuratorHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.Instance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondData(w, inst)
}

type resolveRequest struct {
	ExpectedOutcome string `json:"expected_outcome"`
}

// ResolveMarket runs the judge on one instance now
// POST /api/curator/markets/{id}/resolve {"expected_outcome":"YES"}
func (h *CuratorHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid resolve body: "+err.Error())
		return
	}

	res, err := h.svc.ResolveInstance(r.Context(), id, strings.TrimSpace(req.ExpectedOutcome))
	if err != nil {
		h.logger.WithError(err).WithField("instance_id", id).Warn("Manual resolve failed")
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondData(w, res)
}

// ListJobs returns job run statistics
// GET /api/curator/jobs
func (h *CuratorHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.JobStats())
}

const defaultHistoryLimit = 20

// GetJobHistory returns a job's latest runs
// GET /api/curator/jobs/{name}?limit=20
func (h *CuratorHandler) GetJobHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.svc.JobHistory(name, limit)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job":     name,
		"data":    results,
		"count":   len(results),
	})
}

// RunJob triggers a job outside its schedule
// POST /api/curator/jobs/{name}/run
func (h *CuratorHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.svc.RunJob(name); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job":     name,
	})
}
