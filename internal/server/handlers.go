package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/storyboard/internal/narrator"
	"github.com/MrWong99/storyboard/internal/observe"
	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// Response headers describing a narration.
const (
	HeaderSegmentsTotal = "X-Segments-Total"
	HeaderSegmentsUsed  = "X-Segments-Used"
)

type errorBody struct {
	Error string `json:"error"`
}

type narrateBody struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type voiceBody struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender,omitempty"`
	Provider string `json:"provider,omitempty"`
	Label    string `json:"label"`
}

type voicesBody struct {
	Default string      `json:"default"`
	Voices  []voiceBody `json:"voices"`
}

func (s *Server) handleCreateStoryboard(w http.ResponseWriter, r *http.Request) {
	if s.builder == nil {
		writeError(w, http.StatusServiceUnavailable, "no text provider configured")
		return
	}
	var req storyboard.Request
	if !s.decode(w, r, &req) {
		return
	}
	sb, err := s.builder.Build(r.Context(), req)
	switch {
	case errors.Is(err, storyboard.ErrEmptyStory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storyboard.ErrNoJSON), errors.Is(err, storyboard.ErrNoScenes):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		s.providerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

func (s *Server) handleListStoryboards(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetStoryboard(w http.ResponseWriter, r *http.Request) {
	sb, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (s *Server) handleNarrateStoryboard(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeError(w, http.StatusServiceUnavailable, "no speech provider configured")
		return
	}
	id := r.PathValue("id")
	sb, err := s.store.Get(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}

	var body narrateBody
	if !s.decodeBody(w, r, &body, true) {
		return
	}
	voiceName := body.Voice
	if voiceName == "" {
		voiceName = sb.Voice
	}
	voice := s.resolveVoice(r.Context(), voiceName)

	res, ok := s.narrate(w, r, sb.NarrationText(), voice)
	if !ok {
		return
	}
	if res.Present {
		err := s.store.SetAudio(r.Context(), id, storyboard.Audio{
			WAV:           res.Audio,
			Voice:         voice.Name,
			SegmentsTotal: res.Report.Total,
			SegmentsUsed:  res.Report.Used,
			Duration:      res.Duration(),
			CreatedAt:     time.Now().UTC(),
		})
		if err != nil {
			storeError(w, err)
			return
		}
	}
	writeNarration(w, res)
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Audio(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	w.Header().Set(HeaderSegmentsTotal, strconv.Itoa(a.SegmentsTotal))
	w.Header().Set(HeaderSegmentsUsed, strconv.Itoa(a.SegmentsUsed))
	w.Header().Set("Content-Disposition", `attachment; filename="`+storyboard.ExportAudioFile+`"`)
	writeBytes(w, "audio/wav", a.WAV)
}

func (s *Server) handleIllustrate(w http.ResponseWriter, r *http.Request) {
	if s.illustrator == nil {
		writeError(w, http.StatusServiceUnavailable, "no image provider configured")
		return
	}
	sceneID, ok := sceneParam(w, r)
	if !ok {
		return
	}
	img, err := s.illustrator.Illustrate(r.Context(), r.PathValue("id"), sceneID)
	switch {
	case errors.Is(err, storyboard.ErrNotFound), errors.Is(err, storyboard.ErrSceneNotFound):
		storeError(w, err)
		return
	case errors.Is(err, image.ErrEmptyPrompt):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.providerError(w, r, err)
		return
	}
	writeBytes(w, img.MimeType, img.Data)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := sceneParam(w, r)
	if !ok {
		return
	}
	img, err := s.store.Image(r.Context(), r.PathValue("id"), sceneID)
	if err != nil {
		storeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="s%d.png"`, sceneID))
	writeBytes(w, img.MimeType, img.Data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sb, err := s.store.Get(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	var wavData []byte
	switch a, err := s.store.Audio(r.Context(), id); {
	case err == nil:
		wavData = a.WAV
	case !errors.Is(err, storyboard.ErrNoAudio):
		storeError(w, err)
		return
	}
	images, err := s.store.Images(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := storyboard.Export(&buf, sb, wavData, images); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="storyboard-%s.zip"`, id))
	writeBytes(w, "application/zip", buf.Bytes())
}

func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeError(w, http.StatusServiceUnavailable, "no speech provider configured")
		return
	}
	var body narrateBody
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	res, ok := s.narrate(w, r, body.Text, s.resolveVoice(r.Context(), body.Voice))
	if !ok {
		return
	}
	writeNarration(w, res)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices := s.catalogue(r.Context())
	out := voicesBody{Default: s.defaultVoice, Voices: make([]voiceBody, len(voices))}
	for i, v := range voices {
		out.Voices[i] = voiceBody{ID: v.ID, Name: v.Name, Gender: v.Gender, Provider: v.Provider, Label: v.Label()}
	}
	writeJSON(w, http.StatusOK, out)
}

// narrate runs the narrator and writes the error response itself when it
// fails.
func (s *Server) narrate(w http.ResponseWriter, r *http.Request, text string, voice tts.VoiceProfile) (*narrator.Result, bool) {
	res, err := s.narrator.Narrate(r.Context(), text, voice)
	if err != nil {
		if r.Context().Err() != nil {
			observe.Logger(r.Context()).Info("narration abandoned by client", "err", err)
			return nil, false
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return res, true
}

// catalogue returns the provider's voices, or the built-in Gemini voices
// when no lister is configured or it fails.
func (s *Server) catalogue(ctx context.Context) []tts.VoiceProfile {
	if s.voices == nil {
		return tts.GeminiVoices
	}
	voices, err := s.voices.ListVoices(ctx)
	if err != nil || len(voices) == 0 {
		if err != nil {
			observe.Logger(ctx).Warn("listing voices failed, serving built-in catalogue", "err", err)
		}
		return tts.GeminiVoices
	}
	return voices
}

func (s *Server) resolveVoice(ctx context.Context, nameOrLabel string) tts.VoiceProfile {
	return tts.ResolveVoice(s.catalogue(ctx), nameOrLabel, s.defaultVoice)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return s.decodeBody(w, r, v, false)
}

// decodeBody reads a JSON body into v. An empty body is accepted when
// optional is set and leaves v untouched.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			if optional {
				return true
			}
			writeError(w, http.StatusBadRequest, "request body must not be empty")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) providerError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	observe.Logger(r.Context()).Warn("provider request failed", "err", err)
	writeError(w, http.StatusBadGateway, err.Error())
}

func sceneParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("scene"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "scene must be an integer")
		return 0, false
	}
	return id, true
}

func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storyboard.ErrNotFound),
		errors.Is(err, storyboard.ErrSceneNotFound),
		errors.Is(err, storyboard.ErrNoAudio),
		errors.Is(err, storyboard.ErrNoImage):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeNarration(w http.ResponseWriter, res *narrator.Result) {
	w.Header().Set(HeaderSegmentsTotal, strconv.Itoa(res.Report.Total))
	w.Header().Set(HeaderSegmentsUsed, strconv.Itoa(res.Report.Used))
	if !res.Present {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeBytes(w, "audio/wav", res.Audio)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
