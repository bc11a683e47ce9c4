// Command meetscribe transcribes meeting recordings through hosted
// speech-to-text services.
//
//	meetscribe transcribe meeting.m4a --diarize --title
//	meetscribe serve
//	meetscribe keys set openai < key.txt
//	meetscribe version
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/meetscribe/config"
	apperrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/logger"
	"github.com/kbukum/meetscribe/server"
	"github.com/kbukum/meetscribe/transcription"
	"github.com/kbukum/meetscribe/version"
)

const serviceName = "meetscribe"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: meetscribe <command> [flags]

commands:
  transcribe <file>     transcribe an audio file and print the result as JSON
  serve                 run the HTTP API
  keys set|delete|list  manage API keys in the encrypted vault
  version               print the build version`)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "transcribe":
		return transcribeCmd(ctx, args, stdout, stderr)
	case "serve":
		return serveCmd(ctx, args, stderr)
	case "keys":
		return keysCmd(ctx, args, stdin, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.Get().String())
		return 0
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
}

// loadConfig reads config.yml, .env and MEETSCRIBE_* variables, then
// initialises the global logger.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Init(cfg.Logging)
	return cfg, nil
}

func transcribeCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("transcribe", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath = fs.StringP("config", "c", "", "config file")
		opts    transcription.Options
		pretty  = fs.Bool("pretty", false, "indent JSON output")
	)
	fs.StringVarP(&opts.Backend, "backend", "b", "", "preferred backend (assemblyai, deepgram, openai, gemini)")
	fs.StringVarP(&opts.Model, "model", "m", "", "backend model override")
	fs.StringVarP(&opts.Language, "language", "l", "", "language hint, e.g. en")
	fs.BoolVar(&opts.Diarize, "diarize", false, "label speakers")
	fs.BoolVar(&opts.AutoCompress, "compress", true, "compress audio that exceeds the backend limit")
	fs.BoolVar(&opts.CropSilence, "crop-silence", false, "cut long silences before upload")
	fs.Float64Var(&opts.MinSilenceSeconds, "min-silence", 2, "shortest silence to crop, in seconds")
	fs.BoolVar(&opts.GenerateTitle, "title", false, "generate a meeting title")
	fs.BoolVar(&opts.ValidateQuality, "validate", false, "check the transcript for unusable output")
	fs.BoolVar(&opts.IdentifySpeakers, "identify-speakers", false, "infer speaker names")
	fs.StringVar(&opts.MeetingTitle, "meeting-title", "", "calendar title, used as context")
	fs.StringSliceVarP(&opts.Participants, "participant", "p", nil, "participant name (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "transcribe takes exactly one audio file")
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	creds, err := credentialChain(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	a, err := build(ctx, cfg, creds)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeApp(a)

	res, err := a.orchestrator.Transcribe(ctx, transcription.Request{AudioPath: fs.Arg(0), Options: opts})
	if err != nil {
		writeJSON(stderr, apperrors.From(err).ToResponse(), true)
		return 1
	}
	if err := writeJSON(stdout, res, *pretty); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func serveCmd(ctx context.Context, args []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.StringP("config", "c", "", "config file")
	port := fs.IntP("port", "P", 0, "listen port, overrides config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	log := logger.Get(serviceName)

	creds, err := credentialChain(cfg)
	if err != nil {
		log.Error("startup failed", logger.ErrorFields("credentials", err))
		return 1
	}
	a, err := build(ctx, cfg, creds)
	if err != nil {
		log.Error("startup failed", logger.ErrorFields("build", err))
		return 1
	}
	defer closeApp(a)

	srv := server.New(cfg.Server, &server.API{
		Transcriber: a.orchestrator,
		Registry:    a.registry,
		Calls:       a.calls,
		Checks:      a.checks,
		UploadDir:   cfg.Audio.TempDir,
	}, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("startup failed", logger.ErrorFields("listen", err))
		return 1
	}
	log.Info("ready", logger.Fields("version", version.Get().String(), "backends", a.registry.Priority()))

	<-ctx.Done()
	if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
		log.Error("shutdown failed", logger.ErrorFields("stop", err))
		return 1
	}
	return 0
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logger.Get(serviceName).Warn("close failed", logger.ErrorFields("close", err))
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
