package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/curator"
	"github.com/streakhq/curator/internal/scheduler"
	"github.com/streakhq/curator/pkg/logger"
)

// CuratorService is the engine surface exposed over HTTP
type CuratorService interface {
	Config() contracts.CuratorConfig
	UpdateConfig(cfg contracts.CuratorConfig) error
	SetMode(mode contracts.Mode) error
	Status(ctx context.Context) contracts.EngineStatus
	PendingDrafts() []contracts.MarketDraft
	Approve(ctx context.Context, draftID string, mods *contracts.DraftModifications) (bool, error)
	Reject(draftID string) bool
	Stats() contracts.GenerationStats
	Thresholds() contracts.TriggerThresholds
	DataSources() []contracts.DataSource

	Instances(ctx context.Context, status contracts.InstanceStatus) ([]contracts.MarketInstance, error)
	Instance(ctx context.Context, id string) (contracts.MarketInstance, error)
	ResolveInstance(ctx context.Context, id, expectedOutcome string) (contracts.Resolution, error)

	JobStats() map[string]curator.JobStat
	JobHistory(name string, limit int) ([]scheduler.JobResult, error)
	RunJob(name string) error
}

// CuratorHandler handles the curator admin endpoints
// ⭐ SSOT: 큐레이터 관리 API 핸들러는 이 구조체에서만
type CuratorHandler struct {
	svc    CuratorService
	logger *logger.Logger
}

// NewCuratorHandler creates a new curator handler
func NewCuratorHandler(svc CuratorService, log *logger.Logger) *CuratorHandler {
	return &CuratorHandler{svc: svc, logger: log}
}

// GetConfig returns the live config
// GET /api/curator/config
func (h *CuratorHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.Config())
}

// UpdateConfig replaces the live config
// PUT /api/curator/config
func (h *CuratorHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg contracts.CuratorConfig
	if err := decodeBody(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid config body: "+err.Error())
		return
	}
	if err := h.svc.UpdateConfig(cfg); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondData(w, h.svc.Config())
}

type toggleRequest struct {
	Mode contracts.Mode `json:"mode"`
}

// Toggle switches the operating mode
// POST /api/curator/toggle {"mode":"FULL_CONTROL"}
func (h *CuratorHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid toggle body: "+err.Error())
		return
	}
	if err := h.svc.SetMode(req.Mode); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"mode":    req.Mode,
	})
}

// GetStatus returns the engine snapshot
// GET /api/curator/status
func (h *CuratorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.Status(r.Context()))
}

// ListDrafts returns drafts awaiting review
// GET /api/curator/drafts
func (h *CuratorHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts := h.svc.PendingDrafts()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    drafts,
		"count":   len(drafts),
	})
}

type approveRequest struct {
	Modifications *contracts.DraftModifications `json:"modifications"`
}

// ApproveDraft publishes a pending draft with optional overrides
// POST /api/curator/drafts/{id}/approve
func (h *CuratorHandler) ApproveDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid approve body: "+err.Error())
		return
	}

	ok, err := h.svc.Approve(r.Context(), id, req.Modifications)
	if err != nil {
		h.logger.WithError(err).WithField("draft_id", id).Warn("Draft approval failed")
		respondError(w, errorStatus(err), err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "draft not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"draft_id": id,
	})
}

// RejectDraft drops a pending draft
// POST /api/curator/drafts/{id}/reject
func (h *CuratorHandler) RejectDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  h.svc.Reject(id),
		"draft_id": id,
	})
}

// GetStats returns generation counters
// GET /api/curator/stats
func (h *CuratorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.Stats())
}

// GetThresholds returns the detection thresholds
// GET /api/curator/thresholds
func (h *CuratorHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.Thresholds())
}

// GetDataSources lists upstream collaborators
// GET /api/curator/data-sources
func (h *CuratorHandler) GetDataSources(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.svc.DataSources())
}
