package storyboard

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/MrWong99/storyboard/pkg/provider/image"
)

// Names of the fixed archive members written by [Export].
const (
	ExportStoryboardFile = "storyboard.json"
	ExportAudioFile      = "audio.wav"
)

// Export writes a zip archive holding the storyboard as JSON, the narration
// when audio is non-empty, and one file per illustrated scene named
// s<scene id> with an extension matching the image type.
func Export(w io.Writer, sb *Storyboard, audio []byte, images map[int]*image.Image) error {
	zw := zip.NewWriter(w)

	modified := sb.CreatedAt
	if modified.IsZero() {
		modified = time.Now()
	}

	meta, err := json.MarshalIndent(sb, "", "  ")
	if err != nil {
		return fmt.Errorf("storyboard: export: encode: %w", err)
	}
	if err := writeMember(zw, ExportStoryboardFile, zip.Deflate, modified, meta); err != nil {
		return err
	}

	if len(audio) > 0 {
		if err := writeMember(zw, ExportAudioFile, zip.Deflate, modified, audio); err != nil {
			return err
		}
	}

	for _, id := range slices.Sorted(maps.Keys(images)) {
		img := images[id]
		if img == nil || len(img.Data) == 0 {
			continue
		}
		name := fmt.Sprintf("s%d%s", id, imageExt(img))
		// PNG and JPEG are already compressed.
		if err := writeMember(zw, name, zip.Store, modified, img.Data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("storyboard: export: %w", err)
	}
	return nil
}

func writeMember(zw *zip.Writer, name string, method uint16, modified time.Time, data []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
	if err != nil {
		return fmt.Errorf("storyboard: export %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("storyboard: export %s: %w", name, err)
	}
	return nil
}

func imageExt(img *image.Image) string {
	mime := img.MimeType
	if mime == "" {
		mime = image.DetectMimeType(img.Data)
	}
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}
