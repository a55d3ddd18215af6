package storyboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoJSON is returned by [ParseScenes] when the reply holds no JSON object.
	ErrNoJSON = errors.New("storyboard: model reply contains no JSON object")

	// ErrNoScenes is returned by [ParseScenes] when the object lists no scenes.
	ErrNoScenes = errors.New("storyboard: model reply contains no scenes")
)

// jsonObject matches from the first '{' to the last '}' across lines.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

const promptTemplate = `Create JSON storyboard. Story: %s. Lang: %s. ` +
	`RULES: script=%s, image_prompt=ENGLISH%s, camera=ENGLISH. ` +
	`Output JSON: { "scenes": [ { "id": 1, "script_text": "", "image_prompt": "", "camera_movement": "" } ] }`

// BuildPrompt renders the instruction sent to the text model. The script is
// requested in req.Language while image prompts and camera directions stay in
// English. A non-empty character is appended to the image prompt rule.
func BuildPrompt(req Request) string {
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	var character string
	if c := strings.TrimSpace(req.Character); c != "" {
		character = " Include: " + c
	}
	return fmt.Sprintf(promptTemplate, req.Story, lang, lang, character)
}

// ParseScenes extracts the scene list from a model reply. Markdown code
// fences are removed and the outermost {...} is decoded, so chatter around
// the object is tolerated. Scene ids may be numbers or quoted numbers; when
// any id is missing, not a positive whole number, or repeated, every scene is
// numbered by its position instead.
func ParseScenes(raw string) ([]Scene, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	obj := jsonObject.FindString(cleaned)
	if obj == "" {
		return nil, ErrNoJSON
	}

	var payload struct {
		Scenes []struct {
			ID             json.RawMessage `json:"id"`
			ScriptText     string          `json:"script_text"`
			ImagePrompt    string          `json:"image_prompt"`
			CameraMovement string          `json:"camera_movement"`
		} `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("storyboard: decode model reply: %w", err)
	}
	if len(payload.Scenes) == 0 {
		return nil, ErrNoScenes
	}

	scenes := make([]Scene, len(payload.Scenes))
	seen := make(map[int]bool, len(scenes))
	renumber := false
	for i, s := range payload.Scenes {
		id, ok := sceneID(s.ID)
		if !ok || seen[id] {
			renumber = true
		}
		seen[id] = true
		scenes[i] = Scene{
			ID:             id,
			ScriptText:     s.ScriptText,
			ImagePrompt:    s.ImagePrompt,
			CameraMovement: s.CameraMovement,
		}
	}
	if renumber {
		for i := range scenes {
			scenes[i].ID = i + 1
		}
	}
	return scenes, nil
}

// sceneID reads a positive whole number from a JSON number or a string
// holding one, so 3, 3.0 and "3" all yield 3.
func sceneID(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if f < 1 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
