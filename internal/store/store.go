// Package store provides storage backends for FocusLoop.
//
// It defines the durable Store interface for work blocks, emotional state
// logs, sessions, morning analyses, chat interactions, and users, with SQLite
// and PostgreSQL implementations selected by DSN shape. Durable jobs and the
// outgoing nudge outbox live alongside in the same database.
package store

import (
	"strings"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	// DSN is the data source name. For SQLite this is a file path; for
	// PostgreSQL a connection string.
	DSN string
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType inspects a DSN and reports which backend it belongs to.
// Returns "postgres" for PostgreSQL-style connection strings and "sqlite"
// for anything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	// Key-value form: "host=... dbname=..."
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// Store defines the durable persistence surface used by the scheduling
// engine, the detector, and the session service. Reads of missing rows
// return (nil, nil) rather than an error.
type Store interface {
	// Work blocks
	SaveWorkBlock(wb models.WorkBlock) error
	GetWorkBlock(id string) (*models.WorkBlock, error)
	// CompleteWorkBlock marks a block finished, recording when it ended, the
	// actual minutes worked, and the completion percentage.
	CompleteWorkBlock(id string, completedAt time.Time, actualMinutes float64, completionPct float64) error
	// RecordWorkBlockAdaptation rewrites the planned duration and bumps the
	// adaptation counters on the durable record.
	RecordWorkBlockAdaptation(id string, plannedMinutes int) error
	QueryRecentWorkBlocks(userID string, since time.Time, limit int) ([]models.WorkBlock, error)
	// ListRunningWorkBlocks returns all uncompleted blocks, used to rebuild
	// the in-memory timer registry after a restart.
	ListRunningWorkBlocks() ([]models.WorkBlock, error)

	// Emotional state logs (append-only)
	LogEmotionalState(entry models.EmotionalStateLog) error
	QueryRecentEmotionalStates(userID string, since time.Time, limit int) ([]models.EmotionalStateLog, error)

	// Intervention logs (append-only)
	LogIntervention(entry models.InterventionLog) error
	QueryRecentInterventions(userID string, since time.Time, limit int) ([]models.InterventionLog, error)

	// Sessions
	SaveSession(sess models.Session) error
	GetSession(id string) (*models.Session, error)
	QuerySessionsByUser(userID string, since time.Time) ([]models.Session, error)

	// Morning analyses
	SaveMorningAnalysis(analysis models.MorningAnalysis) error
	GetLatestMorningAnalysis(userID string) (*models.MorningAnalysis, error)

	// Chat interactions (append-only)
	SaveChatInteraction(entry models.ChatInteraction) error
	// QueryRecentChatInteractions returns up to limit chat exchanges for a
	// user, newest first.
	QueryRecentChatInteractions(userID string, limit int) ([]models.ChatInteraction, error)

	// Users
	UpsertUser(u models.User) error
	GetUser(id string) (*models.User, error)
	// GetUserByPhone resolves an inbound nudge sender to a user.
	GetUserByPhone(phone string) (*models.User, error)
	// ListUsers returns every enrolled user, used by recurring sweeps.
	ListUsers() ([]models.User, error)

	Close() error
}

// PersistenceProvider exposes the durable queue repos carried by a backing
// store. Every bundled Store implementation satisfies it; callers that only
// hold a Store can type-assert to wire up the JobRunner and OutboxSender.
type PersistenceProvider interface {
	JobRepo() JobRepo
	OutboxRepo() OutboxRepo
	DedupRepo() DedupRepo
}
