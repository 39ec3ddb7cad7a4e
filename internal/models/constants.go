package models

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// Sync task types and statuses.
const (
	SyncTaskUpsertBooking = "upsert_booking"
	SyncTaskDeleteBooking = "delete_booking"

	SyncStatusPending = "pending"
	SyncStatusRetry   = "retry"
	SyncStatusDone    = "done"
	SyncStatusFailed  = "failed"
)

// Chat steps of the host bot.
const (
	StepIdle            = "idle"
	StepAwaitingProfile = "awaiting_profile"
)

const (
	// DefaultStateTTL bounds how long a bot conversation step lives, in seconds.
	DefaultStateTTL = 24 * 60 * 60

	// WorkerQueueSize is the local buffer of the sync worker.
	WorkerQueueSize = 1000

	// SheetsCacheTTL is how long a booking -> row mapping is trusted, in seconds.
	SheetsCacheTTL = 60 * 60

	// MaxSpotNameLength mirrors the listing form limit.
	MaxSpotNameLength = 50
)
