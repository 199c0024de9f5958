package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"generate-image/internal/config"
	"generate-image/internal/gemini"
	"generate-image/internal/generate"
	"generate-image/internal/httpclient"
)

func main() {
	_ = godotenv.Load()

	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		generate.Report(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate_image <prompt> <output_path>",
		Short: "Generate an image from a text prompt with Gemini",
		Long: "Sends the prompt to the Gemini generateContent API and writes the returned image to output_path.\n" +
			"GEMINI_API_KEY must be set; a .env file in the working directory is loaded if present.",
		// Prompts may start with "-", so flags are not parsed from argv.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceErrors:      true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			args, help := positionalArgs(args)
			if help {
				return cmd.Help()
			}
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return err
			}

			cmd.SilenceUsage = true
			return run(cmd.Context(), args[0], args[1], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// positionalArgs drops a "--" separator and reports whether help was
// requested before it.
func positionalArgs(args []string) ([]string, bool) {
	for i, arg := range args {
		switch arg {
		case "--":
			return append(args[:i:i], args[i+1:]...), false
		case "-h", "--help":
			return nil, true
		}
	}
	return args, false
}

func run(ctx context.Context, prompt, outputPath string, stdout, stderr io.Writer) error {
	if err := generate.ValidatePrompt(prompt); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg, stderr)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	return generate.Run(ctx, generate.Options{
		Prompt:     prompt,
		OutputPath: outputPath,
		Generator:  gem,
		Stdout:     stdout,
		Logger:     logger,
	})
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
