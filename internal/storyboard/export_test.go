package storyboard_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/image"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out
}

func TestExport(t *testing.T) {
	t.Parallel()

	sb := newBoard("a", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	audio := []byte("RIFF-fake-wav")
	images := map[int]*image.Image{
		2: {Data: []byte("\xff\xd8\xff jpeg"), MimeType: "image/jpeg"},
		1: {Data: []byte("\x89PNG\r\n\x1a\n png")},
		3: {},
	}

	var buf bytes.Buffer
	if err := storyboard.Export(&buf, sb, audio, images); err != nil {
		t.Fatalf("Export: %v", err)
	}
	files := readZip(t, buf.Bytes())

	if len(files) != 4 {
		names := make([]string, 0, len(files))
		for n := range files {
			names = append(names, n)
		}
		t.Fatalf("archive members = %v", names)
	}
	var decoded storyboard.Storyboard
	if err := json.Unmarshal(files[storyboard.ExportStoryboardFile], &decoded); err != nil {
		t.Fatalf("decode storyboard.json: %v", err)
	}
	if decoded.ID != "a" || len(decoded.Scenes) != 2 {
		t.Errorf("storyboard.json = %+v", decoded)
	}
	if string(files[storyboard.ExportAudioFile]) != string(audio) {
		t.Errorf("audio.wav differs")
	}
	if _, ok := files["s1.png"]; !ok {
		t.Error("missing s1.png")
	}
	if _, ok := files["s2.jpg"]; !ok {
		t.Error("missing s2.jpg")
	}
}

func TestExport_NoAssets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := storyboard.Export(&buf, newBoard("b", time.Time{}), nil, nil); err != nil {
		t.Fatalf("Export: %v", err)
	}
	files := readZip(t, buf.Bytes())
	if len(files) != 1 {
		t.Errorf("expected only storyboard.json, got %d members", len(files))
	}
	if _, ok := files[storyboard.ExportAudioFile]; ok {
		t.Error("audio.wav must be absent without narration")
	}
}
