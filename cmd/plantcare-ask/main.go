// Command plantcare-ask asks the plant-care assistant a question from the
// terminal and streams the answer, or recognizes a plant photo.
//
//	plantcare-ask "Why are my fern's leaves turning brown?"
//	plantcare-ask -image monstera.jpg
//	plantcare-ask -image leaf.jpg -mode diagnose -symptoms "white spots"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/core/prompt"
	"github.com/leofalp/plantcare/core/recognition"
	"github.com/leofalp/plantcare/internal/config"
	slogobs "github.com/leofalp/plantcare/providers/observability/slog"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		provider   = flag.String("provider", "", "logical provider name (default: configured default)")
		imagePath  = flag.String("image", "", "recognize this image instead of asking a question")
		mode       = flag.String("mode", "identify", "recognition mode: identify or diagnose")
		symptoms   = flag.String("symptoms", "", "symptoms to mention with -image")
		debug      = flag.Bool("debug", false, "log requests to stderr")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *provider, *imagePath, *mode, *symptoms, *debug, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "plantcare-ask:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, provider, imagePath, mode, symptoms string, debug bool, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	opts := []client.Option{client.WithMaxStreamLine(cfg.Gateway.MaxStreamLineBytes)}
	if debug {
		level := slogobs.GetLogLevelFromEnv()
		if level > slog.LevelDebug {
			level = slog.LevelDebug
		}
		opts = append(opts, client.WithObserver(slogobs.New(slogobs.NewLogger(os.Stderr, level, "text"))))
	}
	c, err := client.New(reg, opts...)
	if err != nil {
		return err
	}

	if imagePath != "" {
		return recognize(ctx, c, imagePath, mode, symptoms)
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("no question given")
	}

	descriptor, err := reg.Resolve(provider)
	if err != nil {
		return err
	}
	messages := prompt.Build(prompt.ChatSystemPrompt, nil, question)
	result := c.StreamComplete(ctx, descriptor, messages, func(chunk string) {
		fmt.Print(chunk)
	})
	fmt.Println()
	return result.Err
}

func recognize(ctx context.Context, c *client.Client, path, modeName, symptoms string) error {
	mode, ok := recognition.ParseMode(modeName)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	encoded, mimeType, err := recognition.EncodeImage(data, "")
	if err != nil {
		return err
	}

	result := c.Recognize(ctx, client.RecognitionRequest{
		ImageData:        encoded,
		MimeType:         mimeType,
		PromptText:       recognition.PromptFor(mode, ""),
		PriorSymptomText: symptoms,
	})
	if !result.OK() {
		return result.Err
	}

	var parsed any
	switch mode {
	case recognition.ModeDiagnose:
		if answer := recognition.Interpret[recognition.Diagnosis](result.Content); answer.OK() {
			parsed = answer.Parsed
		}
	default:
		if answer := recognition.Interpret[recognition.Identification](result.Content); answer.OK() {
			parsed = answer.Parsed
		}
	}
	if parsed == nil {
		fmt.Println(result.Content)
		return nil
	}
	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
