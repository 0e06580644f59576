package models

import (
	"math"
	"strconv"
	"time"
)

// DateLayout is the day format used by mite for date_at and query ranges.
const DateLayout = "2006-01-02"

// TimeEntry is one logged unit of work as returned by mite.
// Revenue is in cents and may be absent when no rate applies.
type TimeEntry struct {
	ID         int64    `json:"id"`
	Minutes    int      `json:"minutes"`
	DateAt     string   `json:"date_at"`
	Note       string   `json:"note"`
	Billable   bool     `json:"billable"`
	Locked     bool     `json:"locked"`
	Revenue    *float64 `json:"revenue"`
	HourlyRate *float64 `json:"hourly_rate"`

	UserID       *int64 `json:"user_id"`
	UserName     string `json:"user_name"`
	CustomerID   *int64 `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	ProjectID    *int64 `json:"project_id"`
	ProjectName  string `json:"project_name"`
	ServiceID    *int64 `json:"service_id"`
	ServiceName  string `json:"service_name"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Date parses DateAt. The zero time is returned for malformed values.
func (e TimeEntry) Date() time.Time {
	d, err := time.Parse(DateLayout, e.DateAt)
	if err != nil {
		return time.Time{}
	}
	return d
}

// Hours returns the duration rounded to two decimals, for display.
func (e TimeEntry) Hours() float64 {
	return math.Round(float64(e.Minutes)/60*100) / 100
}

// ProjectKey returns the project id as a string, or "Unknown" when the entry
// has no project.
func (e TimeEntry) ProjectKey() string {
	if e.ProjectID == nil {
		return UnknownProjectKey
	}
	return strconv.FormatInt(*e.ProjectID, 10)
}

// UnknownProjectKey groups entries that carry no project id.
const UnknownProjectKey = "Unknown"
