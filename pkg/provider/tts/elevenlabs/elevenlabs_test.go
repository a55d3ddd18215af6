package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/storyboard/pkg/audio/wav"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

// fakeServer accepts stream-input sockets, reports the text messages of each
// on got and answers with the given PCM chunks.
func fakeServer(t *testing.T, chunks [][]byte, got chan<- []textMessage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/voices" {
			fmt.Fprint(w, `{"voices":[{"voice_id":"abc","name":"Rachel","category":"premade","labels":{"gender":"female"}}]}`)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/voice-1/stream-input") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		var msgs []textMessage
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var m textMessage
			_ = json.Unmarshal(data, &m)
			msgs = append(msgs, m)
			if m.Text == "" {
				break
			}
		}
		got <- msgs
		for _, c := range chunks {
			msg, _ := json.Marshal(audioResponse{Audio: base64.StdEncoding.EncodeToString(c)})
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
		final, _ := json.Marshal(audioResponse{IsFinal: true})
		_ = conn.Write(ctx, websocket.MessageText, final)
		_, _, _ = conn.Read(ctx)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	p, err := New("key", WithOutputFormat("pcm_16000"), WithBaseURLs(wsBase, srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSynthesize_CollectsChunks(t *testing.T) {
	msgs := make(chan []textMessage, 1)
	srv := fakeServer(t, [][]byte{make([]byte, 320), make([]byte, 320)}, msgs)
	p := newTestProvider(t, srv)

	out, err := p.Synthesize(context.Background(), "Hello there.", tts.VoiceProfile{ID: "voice-1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	c, err := wav.Parse(out)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if c.Format != wav.Mono16(16000) || c.FrameCount() != 320 {
		t.Errorf("got %v with %d frames", c.Format, c.FrameCount())
	}

	got := <-msgs
	if len(got) != 3 {
		t.Fatalf("server received %d messages, want 3", len(got))
	}
	if got[0].XiAPIKey != "key" || got[0].VoiceSettings == nil {
		t.Errorf("first message = %+v", got[0])
	}
	if got[1].Text != "Hello there. " {
		t.Errorf("text message = %q", got[1].Text)
	}
	if got[2].Text != "" {
		t.Errorf("flush message = %q", got[2].Text)
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	srv := fakeServer(t, nil, make(chan []textMessage, 1))
	p := newTestProvider(t, srv)

	_, err := p.Synthesize(context.Background(), "Hello.", tts.VoiceProfile{ID: "voice-1"})
	if !errors.Is(err, tts.ErrNoAudio) {
		t.Fatalf("err = %v, want ErrNoAudio", err)
	}
}

func TestSynthesize_Validation(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Synthesize(context.Background(), " ", tts.VoiceProfile{ID: "v"}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if _, err := p.Synthesize(context.Background(), "Hi.", tts.VoiceProfile{}); err == nil {
		t.Error("expected error for empty voice ID")
	}
}

func TestListVoices(t *testing.T) {
	srv := fakeServer(t, nil, make(chan []textMessage, 1))
	p := newTestProvider(t, srv)

	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("expected 1 voice, got %d", len(voices))
	}
	v := voices[0]
	if v.ID != "abc" || v.Gender != "Female" || v.Metadata["category"] != "premade" {
		t.Errorf("voice = %+v", v)
	}
	if v.Label() != "Rachel (Female)" {
		t.Errorf("Label = %q", v.Label())
	}
}

func TestToProfiles_NoLabels(t *testing.T) {
	profiles := toProfiles(voicesResponse{Voices: []elevenLabsVoice{{VoiceID: "x1", Name: "Ghost"}}})
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if _, ok := profiles[0].Metadata["category"]; ok {
		t.Error("expected no 'category' key in metadata when category is empty")
	}
	if profiles[0].Gender != "" {
		t.Errorf("Gender = %q, want empty", profiles[0].Gender)
	}
}

func TestStreamURL(t *testing.T) {
	p, _ := New("key", WithModel("eleven_flash_v2_5"))
	u := p.streamURL("voice abc")
	if !strings.HasPrefix(u, "wss://api.elevenlabs.io/v1/text-to-speech/voice%20abc/stream-input?") {
		t.Errorf("URL = %s", u)
	}
	if !strings.Contains(u, "model_id=eleven_flash_v2_5") {
		t.Errorf("URL should contain model ID, got: %s", u)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("key", WithOutputFormat("mp3_44100_128")); err == nil {
		t.Error("expected error for non-PCM output format")
	}
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel || p.outputFormat != defaultOutputFmt {
		t.Errorf("defaults = %q, %q", p.model, p.outputFormat)
	}
}
