package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/bidboard/pkg/models"
)

const applicationColumns = `a.id, a.job_id, a.freelancer_id, u.username, a.bid_price, a.is_hired, a.submitted_at`

// CreateApplication stores a bid. The hired flag and submission time are set
// here regardless of what the caller supplied.
func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}

	submitted := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO applications (job_id, freelancer_id, bid_price, is_hired, submitted_at) VALUES (?, ?, ?, 0, ?)`, a.JobID, a.FreelancerID, a.BidPrice.StringFixed(2), submitted)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	a.Hired = false
	a.Submitted = fromMillis(submitted)
	return id, nil
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications a JOIN users u ON u.id = a.freelancer_id WHERE a.id = ?`, id)
	a, err := scanApplication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListByJob returns the bids for a job, newest first.
func (r *SQLiteRepo) ListByJob(ctx context.Context, jobID int64) ([]models.Application, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+applicationColumns+` FROM applications a JOIN users u ON u.id = a.freelancer_id WHERE a.job_id = ? ORDER BY a.submitted_at DESC, a.id DESC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

func scanApplication(s rowScanner) (*models.Application, error) {
	var (
		a         models.Application
		hired     int64
		submitted int64
	)
	if err := s.Scan(&a.ID, &a.JobID, &a.FreelancerID, &a.FreelancerName, &a.BidPrice, &hired, &submitted); err != nil {
		return nil, err
	}
	a.Hired = hired == 1
	a.Submitted = fromMillis(submitted)
	return &a, nil
}
