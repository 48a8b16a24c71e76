package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/bidboard/pkg/models"
	"github.com/garnizeh/bidboard/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	UserRepo *mockUserRepo
	Store    *MemStore
}

func NewMocks() *Mocks {
	return &Mocks{
		UserRepo: &mockUserRepo{},
		Store:    NewMemStore(),
	}
}

type mockUserRepo struct {
	Stored    *models.User
	CreateErr error
}

var _ repository.UserRepo = (*mockUserRepo)(nil)

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.Stored = &models.User{ID: 1, Username: u.Username, PasswordHash: u.PasswordHash, Created: time.Now().UTC()}
	u.ID = 1
	return 1, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if m.Stored != nil && m.Stored.ID == id {
		return m.Stored, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.Stored != nil && m.Stored.Username == username {
		return m.Stored, nil
	}
	return nil, nil
}

// MemStore is an in-memory job and bid store. Its hire transactions are
// serialized by a single store-wide lock held from BeginHire until Commit or
// Rollback, and their writes only become visible on Commit. Fields ending in
// Err inject failures into the matching operation.
type MemStore struct {
	lock chan struct{}

	mu      sync.Mutex
	jobs    map[int64]models.Job
	apps    map[int64]models.Application
	nextJob int64
	nextApp int64

	BeginErr     error
	LockJobErr   error
	LockAppErr   error
	CloseJobErr  error
	MarkHiredErr error
	CommitErr    error
	Begins       int
	Commits      int
	Rollbacks    int
}

var _ repository.JobRepo = (*MemStore)(nil)
var _ repository.ApplicationRepo = (*MemStore)(nil)
var _ repository.HireStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		lock: make(chan struct{}, 1),
		jobs: make(map[int64]models.Job),
		apps: make(map[int64]models.Application),
	}
}

func (m *MemStore) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextJob++
	j.ID = m.nextJob
	if j.Status == "" {
		j.Status = models.JobOpen
	}
	j.Created = time.Now().UTC()
	m.jobs[j.ID] = *j
	return j.ID, nil
}

func (m *MemStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *MemStore) ListJobs(ctx context.Context) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (m *MemStore) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextApp++
	a.ID = m.nextApp
	a.Submitted = time.Now().UTC()
	m.apps[a.ID] = *a
	return a.ID, nil
}

func (m *MemStore) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemStore) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Application
	for _, a := range m.apps {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (m *MemStore) BeginHire(ctx context.Context) (repository.HireTx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	select {
	case m.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.mu.Lock()
	m.Begins++
	m.mu.Unlock()
	return &memTx{store: m, jobs: map[int64]models.Job{}, apps: map[int64]models.Application{}}, nil
}

type memTx struct {
	store *MemStore
	jobs  map[int64]models.Job
	apps  map[int64]models.Application
	done  bool
}

func (t *memTx) LockJob(ctx context.Context, jobID int64) (*models.Job, error) {
	if t.store.LockJobErr != nil {
		return nil, t.store.LockJobErr
	}
	return t.store.GetJob(ctx, jobID)
}

func (t *memTx) LockApplication(ctx context.Context, jobID, applicationID int64) (*models.Application, error) {
	if t.store.LockAppErr != nil {
		return nil, t.store.LockAppErr
	}
	a, err := t.store.GetApplication(ctx, applicationID)
	if err != nil || a == nil || a.JobID != jobID {
		return nil, err
	}
	return a, nil
}

func (t *memTx) CloseJob(ctx context.Context, jobID int64) error {
	if t.store.CloseJobErr != nil {
		return t.store.CloseJobErr
	}
	j, _ := t.store.GetJob(ctx, jobID)
	if j == nil || j.Status != models.JobOpen {
		return repository.ErrStaleWrite
	}
	j.Status = models.JobClosed
	t.jobs[jobID] = *j
	return nil
}

func (t *memTx) MarkHired(ctx context.Context, applicationID int64) error {
	if t.store.MarkHiredErr != nil {
		return t.store.MarkHiredErr
	}
	a, _ := t.store.GetApplication(ctx, applicationID)
	if a == nil || a.Hired {
		return repository.ErrStaleWrite
	}
	a.Hired = true
	t.apps[applicationID] = *a
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	defer func() { <-t.store.lock }()

	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErr != nil {
		m.Rollbacks++
		return m.CommitErr
	}
	for id, j := range t.jobs {
		m.jobs[id] = j
	}
	for id, a := range t.apps {
		m.apps[id] = a
	}
	m.Commits++
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	t.store.Rollbacks++
	t.store.mu.Unlock()
	<-t.store.lock
	return nil
}
