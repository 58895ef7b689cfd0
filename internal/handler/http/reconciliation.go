package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
)

type ReconciliationHandler interface {
	Sync(w http.ResponseWriter, r *http.Request)
	Full(w http.ResponseWriter, r *http.Request)
}

type reconciliationHandlerImpl struct {
	runner       reconciliation.Runner
	syncDays     int
	lookbackDays int
	location     *time.Location
	now          func() time.Time
}

func NewReconciliationHandler(runner reconciliation.Runner, syncDays, lookbackDays int, location *time.Location) ReconciliationHandler {
	return &reconciliationHandlerImpl{
		runner:       runner,
		syncDays:     syncDays,
		lookbackDays: lookbackDays,
		location:     location,
		now:          time.Now,
	}
}

// decodeOptional accepts an empty body as the zero request.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Sync implements ReconciliationHandler.
func (h *reconciliationHandlerImpl) Sync(w http.ResponseWriter, r *http.Request) {
	var req reconciliation.SyncRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(h.syncDays); err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.runner.SyncRecent(r.Context(), req.Days)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Raw log sync completed", summary)
}

// Full implements ReconciliationHandler.
func (h *reconciliationHandlerImpl) Full(w http.ResponseWriter, r *http.Request) {
	var req reconciliation.FullRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	cutoff, err := req.ParseCutoff(h.now().In(h.location), h.lookbackDays)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.runner.FullReconcile(r.Context(), cutoff)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Full reconciliation completed", summary)
}
