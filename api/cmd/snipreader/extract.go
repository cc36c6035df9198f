package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

var (
	extractMode    string
	extractPolicy  string
	extractRaw     bool
	extractImage   bool
	extractAnswers bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract questions from a model response, OCR text or an image",
	Long: `Extract questions and print them as JSON.

Without --image the input (file or stdin) is text:
  --mode structured   a generateContent response body (or, with --raw, the model's text)
  --mode heuristic    OCR text with numbered questions and A-D options

With --image the input is a picture and goes through the configured pipeline
(--mode structured or ocr). Nothing is stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		if extractImage {
			return extractFromImage(cmd, data)
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		name := extractPolicy
		if name == "" {
			name = cfg.ElementPolicy
		}
		policy, err := extract.ParsePolicy(name)
		if err != nil {
			return err
		}
		var qs []question.Question
		switch {
		case extractMode == "structured" && extractRaw:
			qs = extract.NewStructured(policy, logger).ExtractText(string(data))
		default:
			e, err := extract.New(extractMode, policy, logger)
			if err != nil {
				return err
			}
			qs = e.Extract(string(data))
		}
		return printJSON(cmd.OutOrStdout(), qs)
	},
}

func extractFromImage(cmd *cobra.Command, data []byte) error {
	mode := extractMode
	if mode == "heuristic" {
		mode = string(pipeline.ModeOCR)
	}
	m, err := pipeline.ParseMode(mode)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	var qs []question.Question
	if m == pipeline.ModeOCR {
		qs, err = a.svc.FromOCR(cmd.Context(), data, extractAnswers)
	} else {
		qs, err = a.svc.FromImage(cmd.Context(), data, util.PickMIME("", "", data))
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), qs)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return b, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func init() {
	extractCmd.Flags().StringVar(&extractMode, "mode", "structured", "structured | heuristic (with --image: structured | ocr)")
	extractCmd.Flags().StringVar(&extractPolicy, "policy", "", "malformed element policy: abort | skip (default: ELEMENT_POLICY)")
	extractCmd.Flags().BoolVar(&extractRaw, "raw", false, "input is model text without the generateContent envelope")
	extractCmd.Flags().BoolVar(&extractImage, "image", false, "input is an image; run the full pipeline")
	extractCmd.Flags().BoolVar(&extractAnswers, "answers", true, "with --image --mode ocr: ask the answering model")
	rootCmd.AddCommand(extractCmd)
}
