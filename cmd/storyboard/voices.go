package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/storyboard/pkg/provider/tts"
)

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices of the configured speech provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, cleanup, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			voices, err := a.Voices(cmd.Context())
			if err != nil {
				slog.Warn("listing voices failed, showing built-in catalogue", "err", err)
				voices = tts.GeminiVoices
			}
			def := cfg.Narration.Voice
			if def == "" {
				def = tts.DefaultVoiceName
			}
			for _, v := range voices {
				marker := " "
				if strings.EqualFold(v.Name, def) || strings.EqualFold(v.ID, def) {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-24s %s\n", marker, v.Label(), v.ID)
			}
			return nil
		},
	}
}
