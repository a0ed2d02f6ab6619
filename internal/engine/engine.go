// Package engine implements the conversational scheduling core: per-user
// planning dialogues, work block timers, and mid-block adaptations. Every
// decision point goes through the language model gateway and every reply is
// run through the interpreter's degradation ladder, so a malformed or
// missing model response can downgrade an answer but never dead-end a
// conversation.
//
// Conversations and timers live in process memory, keyed by user id and work
// block id. Durable outcomes (block creation, completion, adaptation) are
// mirrored into the store. Operations for one user never interleave: each
// holds that user's lock for the full call, gateway round trip included.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
)

// Defaults for idle conversation eviction. Both can be overridden with an
// engine option.
const (
	DefaultConversationTTL = 30 * time.Minute
	DefaultSweepInterval   = 5 * time.Minute
)

// Per-call generation parameters for each engine decision point.
const (
	planningStartTemperature = 0.7
	planningStartMaxTokens   = 200

	planningTurnTemperature = 0.6
	planningTurnMaxTokens   = 300

	durationTemperature = 0.6
	durationMaxTokens   = 250

	stateCheckTemperature = 0.7
	stateCheckMaxTokens   = 300

	breakTemperature = 0.6
	breakMaxTokens   = 250
)

const (
	// shortenGraceMinutes is how much working time a shorten_block adaptation
	// leaves on the clock past the minutes already elapsed.
	shortenGraceMinutes = 10
	// earlyCompletionPct is the completion percentage recorded for blocks
	// ended early by an adaptation.
	earlyCompletionPct = 75.0
)

// nextActionAwaitUser tells the caller the conversation is waiting on the user.
const nextActionAwaitUser = "await_user_response"

// Engine drives planning conversations and work block timers for all users.
type Engine struct {
	gen genai.ClientInterface
	st  store.Store

	// mu guards the three registries and every field of the conversation and
	// timer values they hold. Operations release it before calling the
	// gateway; the per-user lock keeps concurrent writers out in between.
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	timers        map[string]*models.WorkBlockTimer
	userLocks     map[string]*sync.Mutex

	conversationTTL time.Duration
	sweepInterval   time.Duration
}

// Opts holds configuration options for the Engine.
type Opts struct {
	// ConversationTTL is how long an idle conversation survives before the
	// sweeper evicts it.
	ConversationTTL time.Duration
	// SweepInterval is how often the sweeper looks for idle conversations.
	SweepInterval time.Duration
}

// Option defines a configuration option for the Engine.
type Option func(*Opts)

// WithConversationTTL overrides the idle conversation lifetime.
func WithConversationTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.ConversationTTL = ttl }
}

// WithSweepInterval overrides how often idle conversations are swept.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *Opts) { o.SweepInterval = interval }
}

// NewEngine creates a scheduling engine backed by the given gateway and store.
func NewEngine(gen genai.ClientInterface, st store.Store, opts ...Option) *Engine {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ConversationTTL <= 0 {
		cfg.ConversationTTL = DefaultConversationTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Engine{
		gen:             gen,
		st:              st,
		conversations:   make(map[string]*models.Conversation),
		timers:          make(map[string]*models.WorkBlockTimer),
		userLocks:       make(map[string]*sync.Mutex),
		conversationTTL: cfg.ConversationTTL,
		sweepInterval:   cfg.SweepInterval,
	}
}

// userLock returns the mutex serializing all operations for one user,
// creating it on first use.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	return l
}

// runningTimerLocked returns the user's oldest running timer, or nil when no
// block is actively running. Paused blocks are not picked up by state
// checks. Caller must hold e.mu.
func (e *Engine) runningTimerLocked(userID string) *models.WorkBlockTimer {
	var oldest *models.WorkBlockTimer
	for _, t := range e.timers {
		if t.UserID != userID || t.State != models.TimerStateRunning {
			continue
		}
		if oldest == nil || t.StartedAt.Before(oldest.StartedAt) {
			oldest = t
		}
	}
	return oldest
}

// Run starts the sweeper that evicts idle conversations. It blocks until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Engine.Run: starting conversation sweeper",
		"conversationTTL", e.conversationTTL, "sweepInterval", e.sweepInterval)

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine.Run: stopping")
			return
		case <-ticker.C:
			e.sweepExpired(time.Now().UTC())
		}
	}
}

// sweepExpired evicts conversations idle past the TTL. Eviction takes the
// owner's lock first, so a conversation is never pulled out from under an
// in-flight operation; anything touched since the scan survives. Returns
// the eviction count.
func (e *Engine) sweepExpired(now time.Time) int {
	e.mu.Lock()
	var stale []string
	for userID, conv := range e.conversations {
		if conv.IdleFor(now) > e.conversationTTL {
			stale = append(stale, userID)
		}
	}
	e.mu.Unlock()

	evicted := 0
	for _, userID := range stale {
		lock := e.userLock(userID)
		lock.Lock()
		e.mu.Lock()
		if conv, ok := e.conversations[userID]; ok && conv.IdleFor(now) > e.conversationTTL {
			delete(e.conversations, userID)
			evicted++
			slog.Debug("Engine.sweepExpired: evicted idle conversation",
				"userID", userID, "stage", conv.Stage, "idle", conv.IdleFor(now))
		}
		e.mu.Unlock()
		lock.Unlock()
	}

	if evicted > 0 {
		slog.Info("Engine.sweepExpired: removed idle conversations", "count", evicted)
	}
	return evicted
}

// RecoverActiveBlocks reloads uncompleted work blocks from the durable store
// into the timer registry, preserving their original start times so derived
// elapsed and remaining minutes survive a restart. Should be called once at
// startup. Returns the number of timers restored.
func (e *Engine) RecoverActiveBlocks() (int, error) {
	blocks, err := e.st.ListRunningWorkBlocks()
	if err != nil {
		return 0, fmt.Errorf("failed to list running work blocks: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	recovered := 0
	for _, wb := range blocks {
		if _, ok := e.timers[wb.ID]; ok {
			continue
		}
		e.timers[wb.ID] = &models.WorkBlockTimer{
			WorkBlockID:            wb.ID,
			UserID:                 wb.UserID,
			StartedAt:              wb.StartedAt,
			PlannedDurationMinutes: wb.PlannedDurationMinutes,
			State:                  models.TimerStateRunning,
			TaskDescription:        wb.TaskDescription,
		}
		recovered++
	}

	if recovered > 0 {
		slog.Info("Engine.RecoverActiveBlocks: restored timers from durable store", "count", recovered)
	}
	return recovered, nil
}
