package models

import "time"

// SyncTask is a queued spreadsheet mirror job for one booking.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"taskType"`
	BookingID   int64      `json:"bookingId"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retryCount"`
	LastError   *string    `json:"lastError"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt"`
	NextRetryAt *time.Time `json:"nextRetryAt"`
}
