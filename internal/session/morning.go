package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/interpreter"
	"github.com/FocusLoopHQ/FocusLoop/internal/models"
	"github.com/google/uuid"
)

// analysisTemperature keeps plan extraction low-variance.
const analysisTemperature = 0.3

// Schedule materialization constants, applied when the plan leaves a field
// unset.
const (
	fallbackBlockMinutes = 45
	fallbackBreakMinutes = 15
	fallbackMaxBlocks    = 4

	checkinMinutes     = 5
	burnoutRestMinutes = 20
	extendedBreakBonus = 10
)

// analysisPromptFmt extracts a structured day plan from a morning planning
// transcript.
const analysisPromptFmt = `Analyze this morning planning conversation with someone who has ADHD. Extract:

1. EMOTIONAL_STATE: (energized/focused/neutral/distracted/frustrated/overwhelmed/exhausted)
2. ENERGY_LEVEL: (high/medium/low)
3. TASK_COUNT: How many main tasks they mentioned
4. TASK_COMPLEXITY: (simple/medium/complex) based on task descriptions
5. STRESS_INDICATORS: (none/mild/moderate/high) - look for deadline pressure, anxiety
6. HYPERFOCUS_RISK: (low/medium/high) - big projects, perfectionism, excitement
7. RECOMMENDED_BLOCK_LENGTH: (25/35/45) minutes based on their state
8. RECOMMENDED_BREAK_LENGTH: (10/15/20) minutes
9. MAX_WORK_BLOCKS: How many blocks before mandatory long break
10. INTERVENTION_SENSITIVITY: (low/medium/high) - how quickly to intervene if struggling

Conversation: %s

Return as JSON format with these exact keys.`

// MorningPlanResult bundles the analysis outcome, the materialized day
// schedule, and the sessions created from it.
type MorningPlanResult struct {
	Analysis          *models.MorningAnalysis `json:"analysis"`
	Schedule          []models.ScheduleItem   `json:"schedule"`
	ScheduledSessions []models.Session        `json:"scheduled_sessions"`
	Recommendations   Recommendations         `json:"recommendations"`
}

// Recommendations echoes the plan parameters a client needs to drive the day.
type Recommendations struct {
	BlockLength             int    `json:"block_length"`
	BreakLength             int    `json:"break_length"`
	MaxBlocks               int    `json:"max_blocks"`
	InterventionSensitivity string `json:"intervention_sensitivity"`
}

// AnalyzeMorningSession extracts a day plan from a morning planning
// transcript and persists the analysis. When the gateway is unreachable the
// transcript itself is scanned for state keywords, so a usable plan always
// comes back.
func (s *Service) AnalyzeMorningSession(ctx context.Context, userID, transcript string) (*models.MorningAnalysis, interpreter.Source, error) {
	prompt := fmt.Sprintf(analysisPromptFmt, transcript)
	reply, err := s.gen.GeneratePromptWithContext(ctx, "", prompt, genai.WithTemperature(analysisTemperature))

	var (
		plan models.DayPlan
		src  interpreter.Source
	)
	if err != nil {
		slog.Warn("SessionService.AnalyzeMorningSession: gateway unavailable, scanning transcript directly",
			"userID", userID, "error", err)
		plan, src = interpreter.DayPlan(transcript)
	} else {
		plan, src = interpreter.DayPlan(reply)
	}

	analysis := models.MorningAnalysis{
		ID:           uuid.NewString(),
		UserID:       userID,
		AnalysisDate: time.Now().UTC(),
		Plan:         plan,
		Transcript:   transcript,
	}
	if err := s.st.SaveMorningAnalysis(analysis); err != nil {
		return nil, src, fmt.Errorf("failed to save morning analysis: %w", err)
	}

	slog.Info("SessionService.AnalyzeMorningSession: analysis saved",
		"userID", userID, "analysisID", analysis.ID, "source", src,
		"state", plan.EmotionalState, "blockLength", plan.RecommendedBlockLength, "maxBlocks", plan.MaxWorkBlocks)
	return &analysis, src, nil
}

// ProcessMorningPlanning analyzes a completed morning planning conversation,
// materializes the day schedule, and persists a scheduled session for every
// check-in, transition, and burnout-prevention slot. Work blocks and breaks
// stay schedule-only: work blocks are started interactively through the
// engine.
func (s *Service) ProcessMorningPlanning(ctx context.Context, userID, transcript string) (*MorningPlanResult, error) {
	analysis, src, err := s.AnalyzeMorningSession(ctx, userID, transcript)
	if err != nil {
		return nil, err
	}

	schedule := MaterializeSchedule(analysis.Plan, time.Now().UTC())
	analysis.Schedule = schedule
	if err := s.st.SaveMorningAnalysis(*analysis); err != nil {
		return nil, fmt.Errorf("failed to save morning analysis: %w", err)
	}

	var created []models.Session
	for _, item := range schedule {
		switch item.Type {
		case models.SessionTypePostWorkCheckin, models.SessionTypeTransition, models.SessionTypeBurnoutPrevention:
			sess, err := s.createSession(userID, item.Type, item.StartTime, item.DurationMinutes)
			if err != nil {
				return nil, err
			}
			created = append(created, *sess)
		}
	}

	slog.Info("SessionService.ProcessMorningPlanning: day planned",
		"userID", userID, "source", src, "scheduleItems", len(schedule), "sessionsCreated", len(created))
	return &MorningPlanResult{
		Analysis:          analysis,
		Schedule:          schedule,
		ScheduledSessions: created,
		Recommendations: Recommendations{
			BlockLength:             analysis.Plan.RecommendedBlockLength,
			BreakLength:             analysis.Plan.RecommendedBreakLength,
			MaxBlocks:               analysis.Plan.MaxWorkBlocks,
			InterventionSensitivity: analysis.Plan.InterventionSensitivity,
		},
	}, nil
}

// MaterializeSchedule turns a day plan into a concrete schedule starting at
// start: each work block is followed by a five-minute check-in and a break,
// the break grows by ten minutes from the third block onward, and a mandatory
// rest period lands after the third block's break.
func MaterializeSchedule(plan models.DayPlan, start time.Time) []models.ScheduleItem {
	blockMinutes := plan.RecommendedBlockLength
	if blockMinutes <= 0 {
		blockMinutes = fallbackBlockMinutes
	}
	breakMinutes := plan.RecommendedBreakLength
	if breakMinutes <= 0 {
		breakMinutes = fallbackBreakMinutes
	}
	maxBlocks := plan.MaxWorkBlocks
	if maxBlocks <= 0 {
		maxBlocks = fallbackMaxBlocks
	}

	var schedule []models.ScheduleItem
	cursor := start
	for blockNum := 0; blockNum < maxBlocks; blockNum++ {
		workEnd := cursor.Add(time.Duration(blockMinutes) * time.Minute)
		schedule = append(schedule, models.ScheduleItem{
			Type:            models.SessionTypeWorkBlock,
			StartTime:       cursor,
			EndTime:         workEnd,
			DurationMinutes: blockMinutes,
			BlockNumber:     blockNum + 1,
		})

		checkinEnd := workEnd.Add(checkinMinutes * time.Minute)
		schedule = append(schedule, models.ScheduleItem{
			Type:            models.SessionTypePostWorkCheckin,
			StartTime:       workEnd,
			EndTime:         checkinEnd,
			DurationMinutes: checkinMinutes,
		})

		breakDuration := breakMinutes
		if blockNum >= 2 {
			breakDuration += extendedBreakBonus
		}
		breakEnd := checkinEnd.Add(time.Duration(breakDuration) * time.Minute)
		schedule = append(schedule, models.ScheduleItem{
			Type:            models.SessionTypeBreak,
			StartTime:       checkinEnd,
			EndTime:         breakEnd,
			DurationMinutes: breakDuration,
		})
		cursor = breakEnd

		if blockNum == 2 {
			burnoutEnd := cursor.Add(burnoutRestMinutes * time.Minute)
			schedule = append(schedule, models.ScheduleItem{
				Type:            models.SessionTypeBurnoutPrevention,
				StartTime:       cursor,
				EndTime:         burnoutEnd,
				DurationMinutes: burnoutRestMinutes,
				Mandatory:       true,
			})
			cursor = burnoutEnd
		}
	}
	return schedule
}
