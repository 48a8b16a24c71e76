package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/bidboard/pkg/models"
)

const jobColumns = `j.id, j.owner_id, u.username, j.title, j.description, j.status, j.created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateJob posts a new job. Status and creation time are always set here;
// whatever the caller put in those fields is ignored.
func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	created := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO jobs (owner_id, title, description, status, created_at) VALUES (?, ?, ?, ?, ?)`, j.OwnerID, j.Title, j.Description, models.JobOpen, created)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	j.ID = id
	j.Status = models.JobOpen
	j.Created = fromMillis(created)
	return id, nil
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j JOIN users u ON u.id = j.owner_id WHERE j.id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// ListJobs returns every job, newest first.
func (r *SQLiteRepo) ListJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+jobColumns+` FROM jobs j JOIN users u ON u.id = j.owner_id ORDER BY j.created_at DESC, j.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}

	return out, rows.Err()
}

func scanJob(s rowScanner) (*models.Job, error) {
	var (
		j       models.Job
		status  string
		created int64
	)
	if err := s.Scan(&j.ID, &j.OwnerID, &j.OwnerName, &j.Title, &j.Description, &status, &created); err != nil {
		return nil, err
	}
	j.Status = models.JobStatus(status)
	j.Created = fromMillis(created)
	return &j, nil
}
