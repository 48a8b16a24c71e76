package hiring_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/bidboard/internal/hiring"
	"github.com/garnizeh/bidboard/pkg/models"
	"github.com/garnizeh/bidboard/pkg/repository/mock"
)

const (
	ownerID      int64 = 1
	freelancerID int64 = 2
	strangerID   int64 = 3
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.HireNotification
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, hn models.HireNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, hn)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *mock.MemStore
	notifier *recordingNotifier
	coord    *hiring.Coordinator
	job      *models.Job
	app      *models.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMemStore()

	job := &models.Job{OwnerID: ownerID, Title: "Test Job", Description: "Test Desc"}
	if _, err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	app := &models.Application{JobID: job.ID, FreelancerID: freelancerID, BidPrice: decimal.RequireFromString("100.00")}
	if _, err := store.CreateApplication(ctx, app); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	n := &recordingNotifier{}
	clock := func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	coord := hiring.NewCoordinator(store, n, hiring.WithLogger(quietLogger()), hiring.WithClock(clock))
	return &fixture{store: store, notifier: n, coord: coord, job: job, app: app}
}

// assertUnchanged checks the job is still OPEN and the bid is still not hired.
func (f *fixture) assertUnchanged(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	j, _ := f.store.GetJob(ctx, f.job.ID)
	if j.Status != models.JobOpen {
		t.Fatalf("job status changed to %s", j.Status)
	}
	a, _ := f.store.GetApplication(ctx, f.app.ID)
	if a.Hired {
		t.Fatalf("application was marked hired")
	}
}

func TestHire_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.coord.Hire(ctx, f.job.ID, f.app.ID, ownerID)
	if err != nil {
		t.Fatalf("Hire: %v", err)
	}
	if res.JobID != f.job.ID || res.ApplicationID != f.app.ID || res.FreelancerID != freelancerID {
		t.Fatalf("unexpected result: %#v", res)
	}
	if !res.HiredAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected HiredAt: %v", res.HiredAt)
	}

	j, _ := f.store.GetJob(ctx, f.job.ID)
	if j.Status != models.JobClosed {
		t.Fatalf("expected job CLOSED got %s", j.Status)
	}
	a, _ := f.store.GetApplication(ctx, f.app.ID)
	if !a.Hired {
		t.Fatalf("expected application hired")
	}

	if f.notifier.count() != 1 {
		t.Fatalf("expected exactly 1 notification got %d", f.notifier.count())
	}
	got := f.notifier.calls[0]
	if got.ApplicationID != f.app.ID || got.JobID != f.job.ID || got.JobTitle != "Test Job" || !got.BidPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected notification: %#v", got)
	}
	if f.store.Commits != 1 || f.store.Rollbacks != 0 {
		t.Fatalf("expected 1 commit and 0 rollbacks got %d/%d", f.store.Commits, f.store.Rollbacks)
	}
}

func TestHire_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture) (jobID, appID, callerID int64)
		wantErr error
		// whether a transaction should have been opened at all
		wantBegin bool
	}{
		{
			name: "MissingApplicationID",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				return f.job.ID, 0, ownerID
			},
			wantErr:   hiring.ErrMissingApplicationID,
			wantBegin: false,
		},
		{
			name: "JobNotFound",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				return 99999, f.app.ID, ownerID
			},
			wantErr:   hiring.ErrJobNotFound,
			wantBegin: true,
		},
		{
			name: "CallerNotOwner",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				return f.job.ID, f.app.ID, strangerID
			},
			wantErr:   hiring.ErrNotJobOwner,
			wantBegin: true,
		},
		{
			name: "ApplicationNotFound",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				return f.job.ID, 88888, ownerID
			},
			wantErr:   hiring.ErrApplicationNotFound,
			wantBegin: true,
		},
		{
			name: "ApplicationBelongsToAnotherJob",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				other := &models.Job{OwnerID: ownerID, Title: "Another Job"}
				if _, err := f.store.CreateJob(context.Background(), other); err != nil {
					t.Fatalf("CreateJob: %v", err)
				}
				return other.ID, f.app.ID, ownerID
			},
			wantErr:   hiring.ErrApplicationNotFound,
			wantBegin: true,
		},
		{
			name: "OwnerHiresOwnBid",
			prepare: func(t *testing.T, f *fixture) (int64, int64, int64) {
				own := &models.Application{JobID: f.job.ID, FreelancerID: ownerID, BidPrice: decimal.NewFromInt(5)}
				if _, err := f.store.CreateApplication(context.Background(), own); err != nil {
					t.Fatalf("CreateApplication: %v", err)
				}
				return f.job.ID, own.ID, ownerID
			},
			wantErr:   hiring.ErrSelfHire,
			wantBegin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			jobID, appID, callerID := tt.prepare(t, f)

			res, err := f.coord.Hire(context.Background(), jobID, appID, callerID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v got %v", tt.wantErr, err)
			}
			if res != nil {
				t.Fatalf("expected nil result got %#v", res)
			}
			if began := f.store.Begins > 0; began != tt.wantBegin {
				t.Fatalf("transaction opened = %v, want %v", began, tt.wantBegin)
			}
			if f.store.Commits != 0 {
				t.Fatalf("expected no commit got %d", f.store.Commits)
			}
			if f.notifier.count() != 0 {
				t.Fatalf("notifier must not be called on rejection")
			}
			f.assertUnchanged(t)
		})
	}
}

func TestHire_JobAlreadyClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.coord.Hire(ctx, f.job.ID, f.app.ID, ownerID); err != nil {
		t.Fatalf("first hire: %v", err)
	}

	second := &models.Application{JobID: f.job.ID, FreelancerID: strangerID, BidPrice: decimal.NewFromInt(80)}
	if _, err := f.store.CreateApplication(ctx, second); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	_, err := f.coord.Hire(ctx, f.job.ID, second.ID, ownerID)
	if !errors.Is(err, hiring.ErrJobAlreadyClosed) {
		t.Fatalf("expected ErrJobAlreadyClosed got %v", err)
	}

	// closed stays closed and the first hire is the only one
	j, _ := f.store.GetJob(ctx, f.job.ID)
	if j.Status != models.JobClosed {
		t.Fatalf("closed job reopened: %s", j.Status)
	}
	a1, _ := f.store.GetApplication(ctx, f.app.ID)
	a2, _ := f.store.GetApplication(ctx, second.ID)
	if !a1.Hired || a2.Hired {
		t.Fatalf("unexpected hired flags: first=%v second=%v", a1.Hired, a2.Hired)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("expected 1 notification got %d", f.notifier.count())
	}
}

func TestHire_NotifierFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("queue is down")

	_, err := f.coord.Hire(context.Background(), f.job.ID, f.app.ID, ownerID)
	if !errors.Is(err, hiring.ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed got %v", err)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("expected notifier invoked once got %d", f.notifier.count())
	}
	if f.store.Commits != 0 || f.store.Rollbacks != 1 {
		t.Fatalf("expected 0 commits and 1 rollback got %d/%d", f.store.Commits, f.store.Rollbacks)
	}
	f.assertUnchanged(t)

	// the job is still hireable once the dispatcher recovers
	f.notifier.err = nil
	if _, err := f.coord.Hire(context.Background(), f.job.ID, f.app.ID, ownerID); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}

func TestHire_InternalFailuresRollBack(t *testing.T) {
	boom := errors.New("disk on fire")
	tests := []struct {
		name       string
		inject     func(s *mock.MemStore)
		wantNotify int
	}{
		{name: "Begin", inject: func(s *mock.MemStore) { s.BeginErr = boom }},
		{name: "LockJob", inject: func(s *mock.MemStore) { s.LockJobErr = boom }},
		{name: "LockApplication", inject: func(s *mock.MemStore) { s.LockAppErr = boom }},
		{name: "CloseJob", inject: func(s *mock.MemStore) { s.CloseJobErr = boom }},
		{name: "MarkHired", inject: func(s *mock.MemStore) { s.MarkHiredErr = boom }},
		{name: "Commit", inject: func(s *mock.MemStore) { s.CommitErr = boom }, wantNotify: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.inject(f.store)

			_, err := f.coord.Hire(context.Background(), f.job.ID, f.app.ID, ownerID)
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped store error got %v", err)
			}
			if errors.Is(err, hiring.ErrNotificationFailed) {
				t.Fatalf("store failure reported as dependency failure: %v", err)
			}
			if f.notifier.count() != tt.wantNotify {
				t.Fatalf("expected %d notifications got %d", tt.wantNotify, f.notifier.count())
			}
			if f.store.Commits != 0 {
				t.Fatalf("expected no commit got %d", f.store.Commits)
			}
			f.assertUnchanged(t)
		})
	}
}

func TestHire_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// hold the store lock so the hire has to wait for it
	held, err := f.store.BeginHire(ctx)
	if err != nil {
		t.Fatalf("BeginHire: %v", err)
	}
	defer held.Rollback()

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := f.coord.Hire(cctx, f.job.ID, f.app.ID, ownerID); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("notifier must not be called")
	}
}

func TestHire_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	appIDs := []int64{f.app.ID}
	for i := 1; i < n; i++ {
		a := &models.Application{JobID: f.job.ID, FreelancerID: 100 + int64(i), BidPrice: decimal.NewFromInt(int64(50 + i))}
		if _, err := f.store.CreateApplication(ctx, a); err != nil {
			t.Fatalf("CreateApplication: %v", err)
		}
		appIDs = append(appIDs, a.ID)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.coord.Hire(ctx, f.job.ID, appIDs[i], ownerID)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, closed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, hiring.ErrJobAlreadyClosed):
			closed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || closed != n-1 {
		t.Fatalf("expected 1 success and %d conflicts got %d/%d", n-1, ok, closed)
	}

	apps, _ := f.store.ListByJob(ctx, f.job.ID)
	hired := 0
	for _, a := range apps {
		if a.Hired {
			hired++
		}
	}
	if hired != 1 {
		t.Fatalf("expected exactly 1 hired application got %d", hired)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("expected exactly 1 notification got %d", f.notifier.count())
	}
}
