package api

import (
	"errors"
	"net/http"

	"github.com/garnizeh/bidboard/internal/hiring"
	"github.com/garnizeh/bidboard/internal/validate"
)

type HireHandler struct {
	coordinator *hiring.Coordinator
	schemas     *validate.Loader
}

func NewHireHandler(c *hiring.Coordinator, schemas *validate.Loader) *HireHandler {
	return &HireHandler{coordinator: c, schemas: schemas}
}

type hireRequest struct {
	ApplicationID int64 `json:"application_id"`
}

type hireResponse struct {
	Status string `json:"status"`
	*hiring.Result
}

// Hire selects the winning application of a job and closes the job.
func (h *HireHandler) Hire(w http.ResponseWriter, r *http.Request) {
	callerID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	jobID, err := jobIDFromPath(r)
	if err != nil {
		writeError(w, "job not found", http.StatusNotFound)
		return
	}

	var req hireRequest
	if err := decodeBody(r, h.schemas, validate.Hire, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.coordinator.Hire(r.Context(), jobID, req.ApplicationID, callerID)
	if err != nil {
		msg, status := hireErrorStatus(err)
		writeError(w, msg, status)
		return
	}

	writeJSON(w, hireResponse{Status: "hired", Result: res}, http.StatusOK)
}

func hireErrorStatus(err error) (string, int) {
	switch {
	case errors.Is(err, hiring.ErrMissingApplicationID):
		return "application_id is required", http.StatusBadRequest
	case errors.Is(err, hiring.ErrJobNotFound):
		return "job not found", http.StatusNotFound
	case errors.Is(err, hiring.ErrApplicationNotFound):
		return "application not found for this job", http.StatusNotFound
	case errors.Is(err, hiring.ErrNotJobOwner):
		return "only the job owner can hire", http.StatusForbidden
	case errors.Is(err, hiring.ErrSelfHire):
		return "you cannot hire yourself", http.StatusForbidden
	case errors.Is(err, hiring.ErrJobAlreadyClosed):
		return "job is already closed", http.StatusConflict
	case errors.Is(err, hiring.ErrNotificationFailed):
		return "notification service unavailable, hire was not applied", http.StatusServiceUnavailable
	default:
		return "internal server error", http.StatusInternalServerError
	}
}
