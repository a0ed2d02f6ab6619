// Package store provides storage backends for FocusLoop.
//
// This file implements an in-memory store used by tests and local development.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/FocusLoopHQ/FocusLoop/internal/util"
)

// InMemoryStore implements Store, JobRepo, OutboxRepo, and DedupRepo entirely
// in memory. Nothing survives a restart.
type InMemoryStore struct {
	mu            sync.Mutex
	workBlocks    map[string]models.WorkBlock
	emotions      []models.EmotionalStateLog
	interventions []models.InterventionLog
	sessions      map[string]models.Session
	analyses      map[string]models.MorningAnalysis
	chats         []models.ChatInteraction
	users         map[string]models.User
	jobs          map[string]Job
	outbox        map[string]OutboxMessage
	dedup         map[string]DedupRecord
	nextLogID     int64
}

var (
	_ Store      = (*InMemoryStore)(nil)
	_ JobRepo    = (*InMemoryStore)(nil)
	_ OutboxRepo = (*InMemoryStore)(nil)
	_ DedupRepo  = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workBlocks: make(map[string]models.WorkBlock),
		sessions:   make(map[string]models.Session),
		analyses:   make(map[string]models.MorningAnalysis),
		users:      make(map[string]models.User),
		jobs:       make(map[string]Job),
		outbox:     make(map[string]OutboxMessage),
		dedup:      make(map[string]DedupRecord),
	}
}

func (s *InMemoryStore) SaveWorkBlock(wb models.WorkBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workBlocks[wb.ID] = wb
	return nil
}

func (s *InMemoryStore) GetWorkBlock(id string) (*models.WorkBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb, ok := s.workBlocks[id]
	if !ok {
		return nil, nil
	}
	return &wb, nil
}

func (s *InMemoryStore) CompleteWorkBlock(id string, completedAt time.Time, actualMinutes float64, completionPct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb, ok := s.workBlocks[id]
	if !ok {
		return nil
	}
	wb.CompletedAt = &completedAt
	wb.ActualDurationMinutes = &actualMinutes
	wb.Completed = true
	wb.CompletionPercentage = &completionPct
	s.workBlocks[id] = wb
	return nil
}

func (s *InMemoryStore) RecordWorkBlockAdaptation(id string, plannedMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb, ok := s.workBlocks[id]
	if !ok {
		return nil
	}
	wb.PlannedDurationMinutes = plannedMinutes
	wb.WasAdapted = true
	wb.AdaptationCount++
	s.workBlocks[id] = wb
	return nil
}

func (s *InMemoryStore) QueryRecentWorkBlocks(userID string, since time.Time, limit int) ([]models.WorkBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocks []models.WorkBlock
	for _, wb := range s.workBlocks {
		if wb.UserID == userID && !wb.StartedAt.Before(since) {
			blocks = append(blocks, wb)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartedAt.After(blocks[j].StartedAt) })
	if limit > 0 && len(blocks) > limit {
		blocks = blocks[:limit]
	}
	return blocks, nil
}

func (s *InMemoryStore) ListRunningWorkBlocks() ([]models.WorkBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocks []models.WorkBlock
	for _, wb := range s.workBlocks {
		if !wb.Completed {
			blocks = append(blocks, wb)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartedAt.Before(blocks[j].StartedAt) })
	return blocks, nil
}

func (s *InMemoryStore) LogEmotionalState(entry models.EmotionalStateLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	entry.ID = s.nextLogID
	s.emotions = append(s.emotions, entry)
	return nil
}

func (s *InMemoryStore) QueryRecentEmotionalStates(userID string, since time.Time, limit int) ([]models.EmotionalStateLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.EmotionalStateLog
	for _, e := range s.emotions {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) LogIntervention(entry models.InterventionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	entry.ID = s.nextLogID
	s.interventions = append(s.interventions, entry)
	return nil
}

func (s *InMemoryStore) QueryRecentInterventions(userID string, since time.Time, limit int) ([]models.InterventionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.InterventionLog
	for _, e := range s.interventions {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *InMemoryStore) QuerySessionsByUser(userID string, since time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []models.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.ScheduledTime.Before(since) {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ScheduledTime.Before(sessions[j].ScheduledTime) })
	return sessions, nil
}

func (s *InMemoryStore) SaveMorningAnalysis(analysis models.MorningAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[analysis.ID] = analysis
	return nil
}

func (s *InMemoryStore) GetLatestMorningAnalysis(userID string) (*models.MorningAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.MorningAnalysis
	for id := range s.analyses {
		a := s.analyses[id]
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.AnalysisDate.After(latest.AnalysisDate) {
			latest = &a
		}
	}
	return latest, nil
}

func (s *InMemoryStore) SaveChatInteraction(entry models.ChatInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	entry.ID = s.nextLogID
	s.chats = append(s.chats, entry)
	return nil
}

func (s *InMemoryStore) QueryRecentChatInteractions(userID string, limit int) ([]models.ChatInteraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.ChatInteraction
	for _, e := range s.chats {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) UpsertUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	}
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// JobRepo returns the store's durable job repository.
func (s *InMemoryStore) JobRepo() JobRepo { return s }

// OutboxRepo returns the store's outgoing nudge repository.
func (s *InMemoryStore) OutboxRepo() OutboxRepo { return s }

// DedupRepo returns the store's inbound deduplication repository.
func (s *InMemoryStore) DedupRepo() DedupRepo { return s }

// JobRepo implementation.

func (s *InMemoryStore) EnqueueJob(kind string, runAt time.Time, payloadJSON string, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dedupeKey != "" {
		for _, j := range s.jobs {
			if j.DedupeKey == dedupeKey && j.Status != JobStatusDone && j.Status != JobStatusCanceled {
				return j.ID, nil
			}
		}
	}

	now := time.Now()
	id := util.GenerateRandomID("job_", 32)
	s.jobs[id] = Job{
		ID: id, Kind: kind, RunAt: runAt, PayloadJSON: payloadJSON,
		Status: JobStatusQueued, MaxAttempts: 3, DedupeKey: dedupeKey,
		CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *InMemoryStore) ClaimDueJobs(now time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, j := range s.jobs {
		if j.Status == JobStatusQueued && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for i := range due {
		due[i].Status = JobStatusRunning
		lockedAt := now
		due[i].LockedAt = &lockedAt
		due[i].UpdatedAt = now
		s.jobs[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *InMemoryStore) CompleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = JobStatusDone
		j.UpdatedAt = time.Now()
		s.jobs[id] = j
	}
	return nil
}

func (s *InMemoryStore) FailJob(id string, errMsg string, nextRunAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	j.Attempt++
	j.LastError = errMsg
	j.LockedAt = nil
	j.UpdatedAt = time.Now()
	if j.Attempt >= j.MaxAttempts {
		j.Status = JobStatusFailed
	} else {
		j.Status = JobStatusQueued
		j.RunAt = nextRunAt
	}
	s.jobs[id] = j
	return nil
}

func (s *InMemoryStore) CancelJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = JobStatusCanceled
		j.LockedAt = nil
		j.UpdatedAt = time.Now()
		s.jobs[id] = j
	}
	return nil
}

func (s *InMemoryStore) RequeueStaleRunningJobs(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if j.Status == JobStatusRunning && j.LockedAt != nil && j.LockedAt.Before(staleBefore) {
			j.Status = JobStatusQueued
			j.LockedAt = nil
			j.UpdatedAt = time.Now()
			s.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) GetJob(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

// OutboxRepo implementation.

func (s *InMemoryStore) EnqueueOutboxMessage(userID, kind, payloadJSON, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dedupeKey != "" {
		for _, m := range s.outbox {
			if m.DedupeKey == dedupeKey && m.Status != OutboxStatusSent && m.Status != OutboxStatusCanceled {
				return m.ID, nil
			}
		}
	}

	now := time.Now()
	id := util.GenerateRandomID("nudge_", 32)
	s.outbox[id] = OutboxMessage{
		ID: id, UserID: userID, Kind: kind, PayloadJSON: payloadJSON,
		Status: OutboxStatusQueued, DedupeKey: dedupeKey,
		CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *InMemoryStore) ClaimDueOutboxMessages(now time.Time, limit int) ([]OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []OutboxMessage
	for _, m := range s.outbox {
		if m.Status == OutboxStatusQueued && (m.NextAttemptAt == nil || !m.NextAttemptAt.After(now)) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for i := range due {
		due[i].Status = OutboxStatusSending
		lockedAt := now
		due[i].LockedAt = &lockedAt
		due[i].UpdatedAt = now
		s.outbox[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *InMemoryStore) MarkOutboxMessageSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.outbox[id]; ok {
		m.Status = OutboxStatusSent
		m.UpdatedAt = time.Now()
		s.outbox[id] = m
	}
	return nil
}

func (s *InMemoryStore) FailOutboxMessage(id string, errMsg string, nextAttemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.outbox[id]; ok {
		m.Status = OutboxStatusQueued
		m.Attempts++
		m.LastError = errMsg
		m.NextAttemptAt = &nextAttemptAt
		m.LockedAt = nil
		m.UpdatedAt = time.Now()
		s.outbox[id] = m
	}
	return nil
}

func (s *InMemoryStore) RequeueStaleSendingMessages(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.outbox {
		if m.Status == OutboxStatusSending && m.LockedAt != nil && m.LockedAt.Before(staleBefore) {
			m.Status = OutboxStatusQueued
			m.LockedAt = nil
			m.UpdatedAt = time.Now()
			s.outbox[id] = m
			n++
		}
	}
	return n, nil
}

// DedupRepo implementation.

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dedup[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = DedupRecord{MessageID: messageID, UserID: userID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.dedup[messageID]; ok {
		now := time.Now()
		rec.ProcessedAt = &now
		s.dedup[messageID] = rec
	}
	return nil
}
