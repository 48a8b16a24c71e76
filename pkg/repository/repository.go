package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/bidboard/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Lookups return (nil, nil) when the record does not exist.

// ErrStaleWrite is returned by a guarded update that matched no row because
// the record was no longer in the state the caller observed.
var ErrStaleWrite = errors.New("repository: stale write")

// ErrDuplicateUsername is returned by CreateUser when the username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
}

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.Application) (int64, error)
	GetApplication(ctx context.Context, id int64) (*models.Application, error)
	ListByJob(ctx context.Context, jobID int64) ([]models.Application, error)
}

// HireStore opens the transactions the hiring coordinator runs in.
type HireStore interface {
	BeginHire(ctx context.Context) (HireTx, error)
}

// HireTx is one atomic, isolated unit of work over a job and its bids. Rows
// returned by the Lock methods stay exclusively held by the transaction until
// Commit or Rollback. Rollback after a successful Commit is a no-op.
type HireTx interface {
	LockJob(ctx context.Context, jobID int64) (*models.Job, error)
	LockApplication(ctx context.Context, jobID, applicationID int64) (*models.Application, error)
	CloseJob(ctx context.Context, jobID int64) error
	MarkHired(ctx context.Context, applicationID int64) error
	Commit() error
	Rollback() error
}
