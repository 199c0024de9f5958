// Package generate runs one prompt-to-file image generation and renders
// its failures for a terminal.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"generate-image/internal/config"
	"generate-image/internal/gemini"
	"generate-image/internal/imagefile"
)

const promptPreviewRunes = 50

// Generator produces one image for a prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (gemini.Image, error)
}

type Options struct {
	Prompt     string
	OutputPath string
	Generator  Generator
	Stdout     io.Writer
	Logger     *slog.Logger
}

// Run generates an image for opts.Prompt and writes it to opts.OutputPath.
// Errors are returned unrendered; pass them to Report.
func Run(ctx context.Context, opts Options) error {
	if err := ValidatePrompt(opts.Prompt); err != nil {
		return err
	}
	if opts.Generator == nil {
		return errors.New("generator is nil")
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fmt.Fprintf(stdout, "Generating image for: %s\n", previewPrompt(opts.Prompt))

	img, err := opts.Generator.GenerateImage(ctx, opts.Prompt)
	if err != nil {
		return err
	}

	if want, mismatch := imagefile.ExtensionMismatch(opts.OutputPath, img.MimeType); mismatch {
		logger.Warn("output extension does not match image type",
			"path", opts.OutputPath, "mime_type", img.MimeType, "expected_ext", want)
	}

	written, err := imagefile.Save(opts.OutputPath, img.Data)
	if err != nil {
		return err
	}
	logger.Info("image saved", "path", written, "bytes", len(img.Data), "mime_type", img.MimeType)

	fmt.Fprintf(stdout, "Image saved to: %s\n", written)
	return nil
}

// ValidatePrompt rejects prompts that are empty after trimming whitespace.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return gemini.ErrEmptyPrompt
	}
	return nil
}

func previewPrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= promptPreviewRunes {
		return prompt
	}
	return string(runes[:promptPreviewRunes]) + "..."
}

// Report writes a human-readable description of err to w.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}

	var (
		apiErr       *gemini.APIError
		transportErr *gemini.TransportError
		responseErr  *gemini.ResponseError
		decodeErr    *gemini.DecodeError
		writeErr     *imagefile.WriteError
	)

	switch {
	case errors.Is(err, config.ErrMissingAPIKey):
		fmt.Fprintln(w, "Error: GEMINI_API_KEY environment variable is not set")
	case errors.Is(err, gemini.ErrEmptyPrompt):
		fmt.Fprintln(w, "Error: Prompt cannot be empty")
	case errors.As(err, &apiErr):
		fmt.Fprintf(w, "Error: API request failed with status %d\n", apiErr.StatusCode)
		if details := apiErr.Details(); details != "" {
			fmt.Fprintf(w, "Details: %s\n", details)
		}
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			fmt.Fprintln(w, "Error: Request timed out")
		} else {
			fmt.Fprintf(w, "Error: Network error - %v\n", transportErr.Err)
		}
	case errors.As(err, &responseErr):
		fmt.Fprintf(w, "Error: Failed to parse response - %v\n", responseErr.Err)
	case errors.Is(err, gemini.ErrNoCandidates):
		fmt.Fprintln(w, "Error: No candidates in response")
	case errors.Is(err, gemini.ErrEmptyImageData):
		fmt.Fprintln(w, "Error: Empty image data in response")
	case errors.Is(err, gemini.ErrNoImageData):
		fmt.Fprintln(w, "Error: No image data found in response")
	case errors.As(err, &decodeErr):
		fmt.Fprintf(w, "Error: Failed to decode base64 data - %v\n", decodeErr.Err)
	case errors.As(err, &writeErr):
		fmt.Fprintf(w, "Error: Failed to save image - %v\n", writeErr.Err)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
