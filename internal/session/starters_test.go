package session

import (
	"testing"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

func TestStarter_ClockBearingMessages(t *testing.T) {
	morning := time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 4, 17, 30, 0, 0, time.UTC)

	got := Starter(models.SessionTypeMorningPlanning, morning)
	want := "Good morning! ☀️ It's 09:05 AM and time for our morning planning session. How are you feeling today? What's your energy level like?"
	if got != want {
		t.Errorf("morning starter:\n got %q\nwant %q", got, want)
	}

	got = Starter(models.SessionTypeEveningReflection, evening)
	want = "Time to wind down! 🌙 It's 05:30 PM and the workday is done. Let's reflect on how today went. What are you most proud of accomplishing today?"
	if got != want {
		t.Errorf("evening starter:\n got %q\nwant %q", got, want)
	}
}

func TestStarter_StaticMessages(t *testing.T) {
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		sessionType models.SessionType
		want        string
	}{
		{models.SessionTypePostWorkCheckin, "Hey there! 👋 You just finished a work block - how did that go? How are you feeling right now?"},
		{models.SessionTypeTransition, "Ready to dive back in? 🎯 How are you feeling after your break? Let's get you set up for your next work session."},
		{models.SessionTypeBurnoutPrevention, "Hold up! 🛑 You've been working hard for several hours now. It's time for a mandatory rest period. I know you might want to keep going, but your brain needs this break. How are you feeling right now?"},
		{models.SessionType("mystery"), "Hi! I'm here to help. What's on your mind?"},
	}
	for _, tt := range tests {
		if got := Starter(tt.sessionType, at); got != tt.want {
			t.Errorf("Starter(%q):\n got %q\nwant %q", tt.sessionType, got, tt.want)
		}
	}
}
