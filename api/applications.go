package api

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/bidboard/internal/validate"
	"github.com/garnizeh/bidboard/pkg/models"
	"github.com/garnizeh/bidboard/pkg/repository"
)

type ApplicationsHandler struct {
	jobRepo repository.JobRepo
	appRepo repository.ApplicationRepo
	schemas *validate.Loader
}

func NewApplicationsHandler(jr repository.JobRepo, ar repository.ApplicationRepo, schemas *validate.Loader) *ApplicationsHandler {
	return &ApplicationsHandler{jobRepo: jr, appRepo: ar, schemas: schemas}
}

// maxBidPrice bounds bids to ten digits, two of them decimal.
var maxBidPrice = decimal.New(1, 8)

type submitApplicationRequest struct {
	JobID    int64           `json:"job"`
	BidPrice decimal.Decimal `json:"bid_price"`
}

// SubmitApplication places a bid by the authenticated caller on an OPEN job
// that the caller does not own.
func (h *ApplicationsHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	freelancerID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req submitApplicationRequest
	if err := decodeBody(r, h.schemas, validate.ApplicationCreate, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.BidPrice.IsPositive() {
		writeError(w, "bid_price must be positive", http.StatusBadRequest)
		return
	}
	if !req.BidPrice.Equal(req.BidPrice.Truncate(2)) {
		writeError(w, "bid_price has more than two decimal places", http.StatusBadRequest)
		return
	}
	if req.BidPrice.GreaterThanOrEqual(maxBidPrice) {
		writeError(w, "bid_price must be less than 100000000", http.StatusBadRequest)
		return
	}

	job, err := h.jobRepo.GetJob(r.Context(), req.JobID)
	if err != nil {
		logger.Error("get job", slog.Int64("job_id", req.JobID), slog.Any("err", err))
		writeError(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		writeError(w, "job not found", http.StatusNotFound)
		return
	}
	if job.OwnerID == freelancerID {
		writeError(w, "you cannot apply to your own job", http.StatusForbidden)
		return
	}
	if !job.IsOpen() {
		writeError(w, "job is closed", http.StatusConflict)
		return
	}

	app := &models.Application{JobID: job.ID, FreelancerID: freelancerID, BidPrice: req.BidPrice}
	if _, err := h.appRepo.CreateApplication(r.Context(), app); err != nil {
		logger.Error("create application", slog.Int64("job_id", job.ID), slog.Any("err", err))
		writeError(w, "failed to store application", http.StatusInternalServerError)
		return
	}

	writeJSON(w, app, http.StatusCreated)
}
