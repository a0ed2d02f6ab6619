package session

import (
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/models"
)

// starterClock renders the zero-padded 12-hour clock used inside starter
// messages.
const starterClock = "03:04 PM"

// Starter returns the assistant's opening message for a session type. The
// clock-bearing starters render the given time.
func Starter(sessionType models.SessionType, at time.Time) string {
	switch sessionType {
	case models.SessionTypeMorningPlanning:
		return "Good morning! ☀️ It's " + at.Format(starterClock) + " and time for our morning planning session. How are you feeling today? What's your energy level like?"
	case models.SessionTypePostWorkCheckin:
		return "Hey there! 👋 You just finished a work block - how did that go? How are you feeling right now?"
	case models.SessionTypeTransition:
		return "Ready to dive back in? 🎯 How are you feeling after your break? Let's get you set up for your next work session."
	case models.SessionTypeBurnoutPrevention:
		return "Hold up! 🛑 You've been working hard for several hours now. It's time for a mandatory rest period. I know you might want to keep going, but your brain needs this break. How are you feeling right now?"
	case models.SessionTypeEveningReflection:
		return "Time to wind down! 🌙 It's " + at.Format(starterClock) + " and the workday is done. Let's reflect on how today went. What are you most proud of accomplishing today?"
	default:
		return "Hi! I'm here to help. What's on your mind?"
	}
}
