package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain models matching the database schema in db/migrations/0001_init.sql

type JobStatus string

const (
	JobOpen   JobStatus = "OPEN"
	JobClosed JobStatus = "CLOSED"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Created      time.Time `json:"created_at" db:"created_at"`
}

type Job struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	OwnerName   string    `json:"owner_name,omitempty" db:"-"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      JobStatus `json:"status" db:"status"`
	Created     time.Time `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the job still accepts bids and hires.
func (j *Job) IsOpen() bool {
	return j.Status == JobOpen
}

type Application struct {
	ID             int64           `json:"id" db:"id"`
	JobID          int64           `json:"job" db:"job_id"`
	FreelancerID   int64           `json:"freelancer_id" db:"freelancer_id"`
	FreelancerName string          `json:"freelancer_name,omitempty" db:"-"`
	BidPrice       decimal.Decimal `json:"bid_price" db:"bid_price"`
	Hired          bool            `json:"is_hired" db:"is_hired"`
	Submitted      time.Time       `json:"submitted_at" db:"submitted_at"`
}

// JobDetail is a job together with the bids submitted against it.
type JobDetail struct {
	Job
	Applications []Application `json:"applications"`
}

// HireNotification is what the notification dispatcher is told about a hire.
type HireNotification struct {
	JobID         int64           `json:"job_id"`
	JobTitle      string          `json:"job_title"`
	OwnerID       int64           `json:"owner_id"`
	ApplicationID int64           `json:"application_id"`
	FreelancerID  int64           `json:"freelancer_id"`
	BidPrice      decimal.Decimal `json:"bid_price"`
	HiredAt       time.Time       `json:"hired_at"`
}
