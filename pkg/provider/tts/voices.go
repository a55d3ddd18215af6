package tts

import "strings"

// DefaultVoiceName is the voice used when a request does not name one.
const DefaultVoiceName = "Zephyr"

// GeminiVoices is the catalogue of prebuilt Gemini speech voices offered in
// the voice picker, in display order.
var GeminiVoices = []VoiceProfile{
	{ID: "Puck", Name: "Puck", Provider: "gemini", Gender: "Male"},
	{ID: "Charon", Name: "Charon", Provider: "gemini", Gender: "Male"},
	{ID: "Kore", Name: "Kore", Provider: "gemini", Gender: "Female"},
	{ID: "Fenrir", Name: "Fenrir", Provider: "gemini", Gender: "Male"},
	{ID: "Aoede", Name: "Aoede", Provider: "gemini", Gender: "Female"},
	{ID: "Zephyr", Name: "Zephyr", Provider: "gemini", Gender: "Female"},
}

// ParseVoiceLabel strips the gender suffix from a picker label:
// "Puck (Male)" becomes "Puck". Input without a suffix is returned trimmed.
func ParseVoiceLabel(label string) string {
	name, _, _ := strings.Cut(label, " (")
	return strings.TrimSpace(name)
}

// FindVoice looks up a voice by ID, name or picker label, case-insensitively.
func FindVoice(voices []VoiceProfile, nameOrLabel string) (VoiceProfile, bool) {
	name := ParseVoiceLabel(nameOrLabel)
	if name == "" {
		return VoiceProfile{}, false
	}
	for _, v := range voices {
		if strings.EqualFold(v.ID, name) || strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return VoiceProfile{}, false
}

// ResolveVoice returns the catalogue entry for nameOrLabel. Unknown names are
// passed through as a bare profile so that providers with dynamic catalogues
// still receive them. An empty name resolves to fallback.
func ResolveVoice(voices []VoiceProfile, nameOrLabel, fallback string) VoiceProfile {
	if strings.TrimSpace(nameOrLabel) == "" {
		nameOrLabel = fallback
	}
	if v, ok := FindVoice(voices, nameOrLabel); ok {
		return v
	}
	name := ParseVoiceLabel(nameOrLabel)
	return VoiceProfile{ID: name, Name: name}
}
