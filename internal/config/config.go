// Package config loads the settings of the anyspeech
// command from a config file, a .env file, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/unixpickle/anyspeech/anyds2"
	"github.com/unixpickle/anyspeech/anyvocab"
	"github.com/unixpickle/anyspeech/internal/logging"
)

// EnvPrefix is the prefix of environment variables which
// override config keys.
// For example, ANYSPEECH_TRAIN_BATCH_SIZE sets
// train.batch_size.
const EnvPrefix = "ANYSPEECH"

// ErrInvalid is returned for configs that fail
// validation.
var ErrInvalid = errors.New("invalid config")

// Config is the full configuration of the command.
type Config struct {
	Log   logging.Config `mapstructure:"log"`
	Audio AudioConfig    `mapstructure:"audio"`
	Model ModelConfig    `mapstructure:"model"`
	Train TrainConfig    `mapstructure:"train"`
	Eval  EvalConfig     `mapstructure:"eval"`
	Vocab VocabConfig    `mapstructure:"vocab"`
}

// AudioConfig locates pre-extracted features.
type AudioConfig struct {
	// FeatureDir is the directory that manifest audio
	// paths are resolved against.
	FeatureDir string `mapstructure:"feature_dir"`
}

// ModelConfig describes the DeepSpeech2 model.
// The number of classes comes from the vocabulary.
type ModelConfig struct {
	NumFreq       int     `mapstructure:"num_freq" validate:"gt=0"`
	RNNType       string  `mapstructure:"rnn_type" validate:"oneof=rnn gru lstm"`
	HiddenSize    int     `mapstructure:"hidden_size" validate:"gt=0"`
	NumLayers     int     `mapstructure:"num_layers" validate:"gt=0"`
	Bidirectional bool    `mapstructure:"bidirectional"`
	Dropout       float64 `mapstructure:"dropout" validate:"gte=0,lt=1"`
	Precision     string  `mapstructure:"precision" validate:"oneof=float32 float64"`
	RNNActivation string  `mapstructure:"rnn_activation" validate:"oneof=tanh relu"`
	BidirMerge    string  `mapstructure:"bidir_merge" validate:"oneof=concat sum"`
}

// DS2 converts the model config to an anyds2.Config.
func (m ModelConfig) DS2(numClasses int) anyds2.Config {
	return anyds2.Config{
		NumFreq:       m.NumFreq,
		NumClasses:    numClasses,
		RNNType:       m.RNNType,
		HiddenSize:    m.HiddenSize,
		NumLayers:     m.NumLayers,
		Bidirectional: m.Bidirectional,
		Dropout:       m.Dropout,
		RNNActivation: m.RNNActivation,
		BidirMerge:    m.BidirMerge,
	}
}

// TrainConfig configures the train command.
type TrainConfig struct {
	Manifest      string  `mapstructure:"manifest" validate:"required"`
	TrainCount    int     `mapstructure:"train_count" validate:"gte=0"`
	Seed          int64   `mapstructure:"seed"`
	BatchSize     int     `mapstructure:"batch_size" validate:"gt=0"`
	Epochs        int     `mapstructure:"epochs" validate:"gt=0"`
	LearningRate  float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Optimizer     string  `mapstructure:"optimizer" validate:"oneof=adam rmsprop momentum sgd"`
	Preload       bool    `mapstructure:"preload"`
	PrintInterval int     `mapstructure:"print_interval" validate:"gte=0"`
	ModelPath     string  `mapstructure:"model_path" validate:"required"`
	ResultDir     string  `mapstructure:"result_dir" validate:"required"`
}

// EvalConfig configures the eval command.
type EvalConfig struct {
	Manifest        string  `mapstructure:"manifest" validate:"required"`
	ModelPath       string  `mapstructure:"model_path" validate:"required"`
	BatchSize       int     `mapstructure:"batch_size" validate:"gt=0"`
	PrintInterval   int     `mapstructure:"print_interval" validate:"gte=0"`
	Truncate        bool    `mapstructure:"truncate"`
	Decoder         string  `mapstructure:"decoder" validate:"oneof=greedy prefix"`
	BlankThresh     float64 `mapstructure:"blank_thresh" validate:"lte=0"`
	TranscriptsPath string  `mapstructure:"transcripts_path" validate:"required"`
}

// VocabConfig locates the vocabulary and its reserved
// ids.
type VocabConfig struct {
	Path    string `mapstructure:"path" validate:"required"`
	BlankID int    `mapstructure:"blank_id" validate:"gte=0"`
	EOSID   int    `mapstructure:"eos_id"`
	SOSID   int    `mapstructure:"sos_id"`
	PadID   int    `mapstructure:"pad_id"`
}

// Reserved returns the reserved ids.
func (v VocabConfig) Reserved() anyvocab.Reserved {
	return anyvocab.Reserved{Blank: v.BlankID, EOS: v.EOSID, SOS: v.SOSID, Pad: v.PadID}
}

var defaults = map[string]interface{}{
	"log.level":    "info",
	"log.format":   "console",
	"log.output":   "stderr",
	"log.no_color": false,

	"audio.feature_dir": ".",

	"model.num_freq":       161,
	"model.rnn_type":       "lstm",
	"model.hidden_size":    512,
	"model.num_layers":     5,
	"model.bidirectional":  true,
	"model.dropout":        0.3,
	"model.precision":      "float32",
	"model.rnn_activation": "tanh",
	"model.bidir_merge":    "concat",

	"train.manifest":       "",
	"train.train_count":    0,
	"train.seed":           1337,
	"train.batch_size":     32,
	"train.epochs":         20,
	"train.learning_rate":  1e-4,
	"train.optimizer":      "adam",
	"train.preload":        false,
	"train.print_interval": 10,
	"train.model_path":     "model.bin",
	"train.result_dir":     "results",

	"eval.manifest":         "",
	"eval.model_path":       "model.bin",
	"eval.batch_size":       32,
	"eval.print_interval":   10,
	"eval.truncate":         true,
	"eval.decoder":          "greedy",
	"eval.blank_thresh":     -1e-3,
	"eval.transcripts_path": "transcripts.csv",

	"vocab.path":     "",
	"vocab.blank_id": 3,
	"vocab.eos_id":   2,
	"vocab.sos_id":   1,
	"vocab.pad_id":   -1,
}

// Options controls where Load reads settings from.
type Options struct {
	// ConfigFile is a YAML, JSON or TOML file.
	// If empty, no config file is read.
	ConfigFile string

	// EnvFile is a .env file loaded into the environment.
	// If empty, ".env" is loaded when it exists.
	EnvFile string

	// Flags, if non-nil, overrides every other source for
	// the flags that were set.
	Flags *pflag.FlagSet
}

// RegisterFlags adds a flag for every config key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, key := range sortedKeys() {
		switch def := defaults[key].(type) {
		case string:
			fs.String(key, def, "")
		case int:
			fs.Int(key, def, "")
		case float64:
			fs.Float64(key, def, "")
		case bool:
			fs.Bool(key, def, "")
		}
	}
}

// Load reads the configuration.
//
// Sources are applied in increasing priority: defaults,
// the config file, the environment (after loading the
// .env file) and flags.
// The result is not validated.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load config: env file %s: %w", envFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config: %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			if _, ok := defaults[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(f.Name, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("load config: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// ValidateTrain checks the settings used by the train
// command.
func (c *Config) ValidateTrain() error {
	return c.validate(c.Train)
}

// ValidateEval checks the settings used by the eval
// command.
func (c *Config) ValidateEval() error {
	return c.validate(c.Eval)
}

func (c *Config) validate(command interface{}) error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	v := validator.New()
	for _, section := range []interface{}{c.Model, c.Vocab, command} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

func sortedKeys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
