package voice

// DefaultVoiceID is the voice used when a session has not picked one. Calm
// and clear, which suits the audience.
const DefaultVoiceID = "Calum-PlayAI"

// TTS models the catalog covers.
const (
	ModelPlayAI       = "playai-tts"
	ModelPlayAIArabic = "playai-tts-arabic"
)

// VoiceInfo describes one synthesizable voice.
type VoiceInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// englishVoices is the playai-tts roster, per the gateway's documentation.
var englishVoices = []VoiceInfo{
	{ID: "Arista-PlayAI", Description: "Female, professional"},
	{ID: "Atlas-PlayAI", Description: "Male, confident"},
	{ID: "Basil-PlayAI", Description: "Male, storyteller"},
	{ID: "Briggs-PlayAI", Description: "Male, narrator"},
	{ID: "Calum-PlayAI", Description: "Male, calm (default)"},
	{ID: "Celeste-PlayAI", Description: "Female, warm"},
	{ID: "Cheyenne-PlayAI", Description: "Female, energetic"},
	{ID: "Chip-PlayAI", Description: "Male, casual"},
	{ID: "Cillian-PlayAI", Description: "Male, conversational"},
	{ID: "Deedee-PlayAI", Description: "Female, friendly"},
	{ID: "Fritz-PlayAI", Description: "Male, formal"},
	{ID: "Gail-PlayAI", Description: "Female, professional"},
	{ID: "Indigo-PlayAI", Description: "Non-binary, neutral"},
	{ID: "Mamaw-PlayAI", Description: "Female, elderly"},
	{ID: "Mason-PlayAI", Description: "Male, friendly"},
	{ID: "Mikail-PlayAI", Description: "Male, deep"},
	{ID: "Mitch-PlayAI", Description: "Male, casual"},
	{ID: "Quinn-PlayAI", Description: "Neutral, gentle"},
	{ID: "Thunder-PlayAI", Description: "Male, powerful"},
}

// arabicVoices is the playai-tts-arabic roster.
var arabicVoices = []VoiceInfo{
	{ID: "Ahmad-PlayAI", Description: "Male, Arabic"},
	{ID: "Amira-PlayAI", Description: "Female, Arabic"},
	{ID: "Khalid-PlayAI", Description: "Male, Arabic"},
	{ID: "Nasser-PlayAI", Description: "Male, Arabic"},
}

// recommendedVoices maps a desired tone to a voice.
var recommendedVoices = map[string]string{
	"calm":         "Calum-PlayAI",
	"professional": "Arista-PlayAI",
	"friendly":     "Mason-PlayAI",
	"warm":         "Celeste-PlayAI",
	"confident":    "Atlas-PlayAI",
	"gentle":       "Quinn-PlayAI",
	"energetic":    "Cheyenne-PlayAI",
	"storyteller":  "Basil-PlayAI",
}

// Catalog is the full voice listing returned by the API.
type Catalog struct {
	Voices      map[string][]VoiceInfo `json:"voices"`
	Recommended map[string]string      `json:"recommended"`
	Default     string                 `json:"default"`
}

// AvailableVoices returns the synthesizable voice catalog keyed by TTS model.
func AvailableVoices() Catalog {
	return Catalog{
		Voices: map[string][]VoiceInfo{
			ModelPlayAI:       englishVoices,
			ModelPlayAIArabic: arabicVoices,
		},
		Recommended: recommendedVoices,
		Default:     DefaultVoiceID,
	}
}

// RecommendVoice maps a tone preference to a voice, falling back to the
// default for unknown preferences.
func RecommendVoice(preference string) string {
	if v, ok := recommendedVoices[preference]; ok {
		return v
	}
	return DefaultVoiceID
}

// IsKnownVoice reports whether the given ID names a voice in the catalog.
func IsKnownVoice(id string) bool {
	for _, v := range englishVoices {
		if v.ID == id {
			return true
		}
	}
	for _, v := range arabicVoices {
		if v.ID == id {
			return true
		}
	}
	return false
}
