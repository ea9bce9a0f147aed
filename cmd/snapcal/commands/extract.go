package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapcal/snapcal/internal/bootstrap"
	"github.com/snapcal/snapcal/internal/config"
	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/infrastructure/export"
)

type extractFlags struct {
	file      string
	format    string
	models    []string
	retries   int
	timeoutMS int
}

func newExtractCommand() *cobra.Command {
	flags := extractFlags{retries: -1}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction pipeline against a single image file",
		Long: "Reads a schedule photo, sends it through the model fallback chain " +
			"and prints the extracted events. Inference credentials come from the " +
			"environment (INFERENCE_API_URL, INFERENCE_API_KEY).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "path to the image file (required)")
	cmd.Flags().StringVar(&flags.format, "format", "json", "output format: json or ics")
	cmd.Flags().StringSliceVar(&flags.models, "models", nil, "candidate models in priority order")
	cmd.Flags().IntVar(&flags.retries, "retries", -1, "retries per model call (default from env)")
	cmd.Flags().IntVar(&flags.timeoutMS, "timeout-ms", 0, "per-attempt timeout in milliseconds (default from env)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runExtract(cmd *cobra.Command, flags extractFlags) error {
	if flags.format != "json" && flags.format != "ics" {
		return fmt.Errorf("unsupported format %q: want json or ics", flags.format)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(flags.file)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	opts, err := buildOptions(cfg, flags)
	if err != nil {
		return err
	}

	extractor := bootstrap.NewExtractor(cfg)
	result, err := extractor.Extract(cmd.Context(), domain.ExtractionRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Filename:    filepath.Base(flags.file),
	}, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.format == "ics" {
		calendar, err := export.ICS(result.Events)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, calendar)
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func buildOptions(cfg config.Config, flags extractFlags) (domain.ExtractionOptions, error) {
	opts := domain.ExtractionOptions{}
	if flags.retries >= 0 {
		opts.MaxRetries = flags.retries
	}
	if flags.timeoutMS > 0 {
		opts.PerAttemptTimeout = time.Duration(flags.timeoutMS) * time.Millisecond
	}
	if len(flags.models) > 0 {
		models := make([]domain.CandidateModel, 0, len(flags.models))
		for i, name := range flags.models {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			models = append(models, domain.CandidateModel{Name: name, Priority: i})
		}
		opts.Models = models
		return opts, nil
	}

	models, err := cfg.Models()
	if err != nil {
		return opts, err
	}
	opts.Models = models
	return opts, nil
}
