package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/storyboard/internal/storyboard"
	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

var errNoAudio = errors.New("no audio produced")

func newNarrateCmd() *cobra.Command {
	var (
		textFile       string
		storyboardFile string
		voiceName      string
		outPath        string
	)
	cmd := &cobra.Command{
		Use:   "narrate [text]",
		Short: "Synthesize text or a storyboard's script into one WAV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if storyboardFile != "" {
				if len(args) > 0 || textFile != "" {
					return errors.New("--storyboard cannot be combined with other text input")
				}
				data, err := os.ReadFile(storyboardFile)
				if err != nil {
					return err
				}
				var sb storyboard.Storyboard
				if err := json.Unmarshal(data, &sb); err != nil {
					return fmt.Errorf("decode %s: %w", storyboardFile, err)
				}
				text = sb.NarrationText()
				if voiceName == "" {
					voiceName = sb.Voice
				}
			} else {
				var err error
				if text, err = readText(args, textFile); err != nil {
					return err
				}
			}

			a, cfg, cleanup, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			nr := a.Narrator()
			if nr == nil {
				return errors.New("no tts provider configured")
			}
			voices, err := a.Voices(cmd.Context())
			if err != nil {
				voices = tts.GeminiVoices
			}
			fallback := cfg.Narration.Voice
			if fallback == "" {
				fallback = tts.DefaultVoiceName
			}
			voice := tts.ResolveVoice(voices, voiceName, fallback)

			res, err := nr.Narrate(cmd.Context(), text, voice)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "voice %s: %s\n", voice.Label(), res.Report)
			if !res.Present {
				return errNoAudio
			}
			if err := os.WriteFile(outPath, res.Audio, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", outPath, res.Duration().Round(10*time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&textFile, "file", "f", "", "read the text from a file (- for stdin)")
	cmd.Flags().StringVarP(&storyboardFile, "storyboard", "s", "", "narrate the script of a storyboard JSON file")
	cmd.Flags().StringVar(&voiceName, "voice", "", `voice name or picker label, e.g. "Puck (Male)"`)
	cmd.Flags().StringVarP(&outPath, "out", "o", "narration.wav", "output WAV file")
	return cmd
}
