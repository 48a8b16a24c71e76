// Package hiring implements the hire transition: selecting one bid for a job
// and closing the job, exactly once, under concurrent requests.
//
// The Coordinator holds no locks of its own. Each Hire runs inside a single
// store transaction: lock the job, validate, lock the bid, write both rows,
// tell the notifier, and commit. If anything fails before the commit the
// transaction is rolled back and no write is visible to later readers, so a
// failed hire is indistinguishable from one that never happened.
package hiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/bidboard/pkg/models"
	"github.com/garnizeh/bidboard/pkg/repository"
)

// Notifier is told about each hire before it is committed. A non-nil error
// aborts the hire.
type Notifier interface {
	Notify(ctx context.Context, n models.HireNotification) error
}

// Result describes a committed hire.
type Result struct {
	JobID         int64     `json:"job_id"`
	ApplicationID int64     `json:"application_id"`
	FreelancerID  int64     `json:"freelancer_id"`
	HiredAt       time.Time `json:"hired_at"`
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for HiredAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

type Coordinator struct {
	store    repository.HireStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewCoordinator(store repository.HireStore, notifier Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hire makes applicationID the winning bid of jobID on behalf of callerID.
//
// Errors from this package's sentinel set are expected rejections; any other
// error is an internal failure. On every error the job and the bid are left
// exactly as they were before the call.
func (c *Coordinator) Hire(ctx context.Context, jobID, applicationID, callerID int64) (*Result, error) {
	if applicationID <= 0 {
		return nil, ErrMissingApplicationID
	}

	log := c.logger.With(
		slog.Int64("job_id", jobID),
		slog.Int64("application_id", applicationID),
		slog.Int64("caller_id", callerID),
	)

	res, err := c.hire(ctx, jobID, applicationID, callerID)
	switch {
	case err == nil:
		log.Info("hire committed", slog.Int64("freelancer_id", res.FreelancerID))
	case errors.Is(err, ErrNotificationFailed):
		log.Warn("hire rolled back", slog.Any("err", err))
	case isRejection(err):
		log.Info("hire rejected", slog.String("reason", err.Error()))
	default:
		log.Error("hire failed", slog.Any("err", err))
	}
	return res, err
}

func (c *Coordinator) hire(ctx context.Context, jobID, applicationID, callerID int64) (*Result, error) {
	tx, err := c.store.BeginHire(ctx)
	if err != nil {
		return nil, fmt.Errorf("hiring: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Error("hiring: rollback", slog.Int64("job_id", jobID), slog.Any("err", rbErr))
			}
		}
	}()

	job, err := tx.LockJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("hiring: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.OwnerID != callerID {
		return nil, ErrNotJobOwner
	}
	// only the lock holder can see OPEN here; a racing hire that committed
	// first has already flipped the status
	if !job.IsOpen() {
		return nil, ErrJobAlreadyClosed
	}

	app, err := tx.LockApplication(ctx, jobID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("hiring: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.FreelancerID == callerID {
		return nil, ErrSelfHire
	}

	if err := tx.CloseJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("hiring: %w", err)
	}
	if err := tx.MarkHired(ctx, applicationID); err != nil {
		return nil, fmt.Errorf("hiring: %w", err)
	}

	hiredAt := c.now()
	notice := models.HireNotification{
		JobID:         job.ID,
		JobTitle:      job.Title,
		OwnerID:       job.OwnerID,
		ApplicationID: app.ID,
		FreelancerID:  app.FreelancerID,
		BidPrice:      app.BidPrice,
		HiredAt:       hiredAt,
	}
	if err := c.notifier.Notify(ctx, notice); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("hiring: %w", err)
	}
	committed = true

	return &Result{
		JobID:         job.ID,
		ApplicationID: app.ID,
		FreelancerID:  app.FreelancerID,
		HiredAt:       hiredAt,
	}, nil
}

func isRejection(err error) bool {
	for _, target := range []error{
		ErrMissingApplicationID,
		ErrJobNotFound,
		ErrApplicationNotFound,
		ErrNotJobOwner,
		ErrSelfHire,
		ErrJobAlreadyClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
