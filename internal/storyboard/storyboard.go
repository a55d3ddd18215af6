// Package storyboard turns a story into a list of illustrated, narrated
// scenes. It owns the prompt contract with the text model, the parsing of the
// model's reply, the in-memory store of generated storyboards and their
// assets, and the zip export.
package storyboard

import (
	"errors"
	"strings"
	"time"
)

// Languages a storyboard script can be written in.
const (
	LanguageIndonesia = "Indonesia"
	LanguageEnglish   = "English"
)

// DefaultLanguage is used when a [Request] does not name one.
const DefaultLanguage = LanguageIndonesia

// ErrEmptyStory is returned by [Builder.Build] for a blank story.
var ErrEmptyStory = errors.New("storyboard: story must not be empty")

// Scene is one shot of a storyboard. Script text is in the storyboard
// language; the image prompt and camera movement are always English.
type Scene struct {
	ID             int    `json:"id"`
	ScriptText     string `json:"script_text"`
	ImagePrompt    string `json:"image_prompt"`
	CameraMovement string `json:"camera_movement"`
}

// Storyboard is a generated scene list together with the request that
// produced it.
type Storyboard struct {
	ID        string    `json:"id"`
	Story     string    `json:"story"`
	Character string    `json:"character,omitempty"`
	Language  string    `json:"language"`
	Voice     string    `json:"voice,omitempty"`
	Scenes    []Scene   `json:"scenes"`
	CreatedAt time.Time `json:"created_at"`
}

// Request asks for a new storyboard.
type Request struct {
	// Story is the free-form story to cut into scenes.
	Story string `json:"story"`

	// Character is an optional description that every image prompt must
	// include, keeping the main character consistent across scenes.
	Character string `json:"character,omitempty"`

	// Language of the script text. Empty selects the builder default.
	Language string `json:"language,omitempty"`

	// Voice is the preferred narration voice, recorded on the storyboard.
	Voice string `json:"voice,omitempty"`
}

// NarrationText joins the script text of every scene with single spaces, in
// scene order. Scenes without script contribute an empty string.
func (sb *Storyboard) NarrationText() string {
	parts := make([]string, len(sb.Scenes))
	for i, sc := range sb.Scenes {
		parts[i] = sc.ScriptText
	}
	return strings.Join(parts, " ")
}

// Scene returns the scene with the given ID.
func (sb *Storyboard) Scene(id int) (Scene, bool) {
	for _, sc := range sb.Scenes {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scene{}, false
}

func (sb *Storyboard) clone() *Storyboard {
	cp := *sb
	cp.Scenes = append([]Scene(nil), sb.Scenes...)
	return &cp
}
