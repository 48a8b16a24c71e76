package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/bidboard/internal/validate"
	"github.com/garnizeh/bidboard/pkg/models"
	"github.com/garnizeh/bidboard/pkg/repository"
)

type JobsHandler struct {
	jobRepo repository.JobRepo
	appRepo repository.ApplicationRepo
	schemas *validate.Loader
}

func NewJobsHandler(jr repository.JobRepo, ar repository.ApplicationRepo, schemas *validate.Loader) *JobsHandler {
	return &JobsHandler{jobRepo: jr, appRepo: ar, schemas: schemas}
}

type createJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateJob posts a job owned by the authenticated caller.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createJobRequest
	if err := decodeBody(r, h.schemas, validate.JobCreate, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := &models.Job{OwnerID: ownerID, Title: req.Title, Description: req.Description}
	if _, err := h.jobRepo.CreateJob(r.Context(), job); err != nil {
		logger.Error("create job", slog.Any("err", err))
		writeError(w, "failed to store job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, job, http.StatusCreated)
}

func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobRepo.ListJobs(r.Context())
	if err != nil {
		logger.Error("list jobs", slog.Any("err", err))
		writeError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	writeJSON(w, jobs, http.StatusOK)
}

// GetJob returns a job together with its applications.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	apps, err := h.appRepo.ListByJob(r.Context(), job.ID)
	if err != nil {
		logger.Error("list applications", slog.Int64("job_id", job.ID), slog.Any("err", err))
		writeError(w, "failed to load applications", http.StatusInternalServerError)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}

	writeJSON(w, models.JobDetail{Job: *job, Applications: apps}, http.StatusOK)
}

func (h *JobsHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	apps, err := h.appRepo.ListByJob(r.Context(), job.ID)
	if err != nil {
		logger.Error("list applications", slog.Int64("job_id", job.ID), slog.Any("err", err))
		writeError(w, "failed to list applications", http.StatusInternalServerError)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}

	writeJSON(w, apps, http.StatusOK)
}

func (h *JobsHandler) loadJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	jobID, err := jobIDFromPath(r)
	if err != nil {
		writeError(w, "job not found", http.StatusNotFound)
		return nil, false
	}

	job, err := h.jobRepo.GetJob(r.Context(), jobID)
	if err != nil {
		logger.Error("get job", slog.Int64("job_id", jobID), slog.Any("err", err))
		writeError(w, "failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	if job == nil {
		writeError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func jobIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
