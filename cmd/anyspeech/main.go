// Command anyspeech trains and evaluates DeepSpeech2
// models on pre-extracted features.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/unixpickle/anyspeech/anyds2"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyspeech/internal/config"
	"github.com/unixpickle/anyspeech/internal/logging"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

const usage = `Usage: anyspeech <command> [flags]

Commands:
  train    train a model, validating after every epoch
  eval     transcribe a test set and report the CER

Run "anyspeech <command> --help" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "eval":
		err = runEval(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// A session holds what every command needs.
type session struct {
	Config  *config.Config
	Logger  zerolog.Logger
	RunID   string
	Creator anyvec.Creator
	Vocab   *anyvocab.Vocab
}

func newSession(command string, args []string, validate func(*config.Config) error) (*session, error) {
	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	configFile := fs.String("config", "", "YAML, JSON or TOML config file")
	envFile := fs.String("env", "", ".env file (default: ./.env if present)")
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		Flags:      fs,
	})
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, command)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger = logging.WithRun(logger, runID)

	vocab, err := anyvocab.LoadFile(cfg.Vocab.Path, cfg.Vocab.Reserved())
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("classes", vocab.NumClasses()).
		Str("vocab", cfg.Vocab.Path).
		Msg("loaded vocabulary")

	return &session{
		Config:  cfg,
		Logger:  logger,
		RunID:   runID,
		Creator: creator(cfg.Model.Precision),
		Vocab:   vocab,
	}, nil
}

// checkModel makes sure that every class the model can
// predict decodes with the session's vocabulary.
func (s *session) checkModel(m *anyds2.Model) error {
	if err := s.Vocab.CheckClasses(m.Config.NumClasses); err != nil {
		return fmt.Errorf("model does not match vocabulary %s: %w", s.Config.Vocab.Path, err)
	}
	return nil
}

func creator(precision string) anyvec.Creator {
	if precision == "float64" {
		return anyvec64.DefaultCreator{}
	}
	return anyvec32.CurrentCreator()
}

// runPath inserts the run id before the extension of a
// file name.
func runPath(path, runID string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + runID + ext
}
