package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/storyboard/internal/storyboard"
)

func newBuildCmd() *cobra.Command {
	var (
		req       storyboard.Request
		storyFile string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "build [story]",
		Short: "Build a storyboard and print it as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story, err := readText(args, storyFile)
			if err != nil {
				return err
			}
			req.Story = story

			a, _, cleanup, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b := a.Builder()
			if b == nil {
				return errors.New("no llm provider configured")
			}
			sb, err := b.Build(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sb)
		},
	}
	cmd.Flags().StringVarP(&storyFile, "file", "f", "", "read the story from a file (- for stdin)")
	cmd.Flags().StringVar(&req.Character, "character", "", "main character description included in every image prompt")
	cmd.Flags().StringVarP(&req.Language, "language", "l", "", "script language (Indonesia or English)")
	cmd.Flags().StringVar(&req.Voice, "voice", "", "preferred narration voice")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the storyboard JSON to a file")
	return cmd
}

// readText returns the first argument, or the content of path ("-" is stdin).
func readText(args []string, path string) (string, error) {
	switch {
	case len(args) > 0 && path != "":
		return "", errors.New("pass the text as an argument or with --file, not both")
	case len(args) > 0:
		return args[0], nil
	case path == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(b), nil
	}
	return "", errors.New("no text given")
}
