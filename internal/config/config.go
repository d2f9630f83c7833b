// Package config builds the quizrunner command line, binding flags to
// environment variables under the QUIZRUNNER_ prefix. Grounded on
// _examples/Seednode-partybox/config.go's cobra/pflag/viper wiring, with
// .env bootstrap (github.com/joho/godotenv) added per
// 1kaius1-MUD-Engine/go.mod's declared dependency, so local development
// does not require exporting provider credentials by hand.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every runtime-tunable setting for the server.
type Config struct {
	Bind    string
	Port    int
	Verbose bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QuestionProviderURL string
	HintProviderURL     string
	HintProviderAPIKey  string
	AvatarLookupURL     string

	AllowedOrigins []string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	QuestionTimeLimit time.Duration
	HostPollInterval  time.Duration
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.QuestionTimeLimit <= 0 {
		return errors.New("question-time-limit must be positive")
	}
	return nil
}

// Load parses .env (if present, silently ignored if absent), then builds
// and executes the cobra command, invoking run with the fully bound Config
// on success.
func Load(args []string, run func(*Config) error) error {
	_ = godotenv.Load()

	cfg := &Config{}
	cmd := newCmd(cfg, run)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newCmd(cfg *Config, run func(*Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizrunner",
		Short:         "Real-time multiplayer trivia engine.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZRUNNER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: QUIZRUNNER_PORT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable console debug logging (env: QUIZRUNNER_VERBOSE)")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "redis host:port (env: QUIZRUNNER_REDIS_ADDR)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: QUIZRUNNER_REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis logical db index (env: QUIZRUNNER_REDIS_DB)")

	fs.StringVar(&cfg.QuestionProviderURL, "question-provider-url", "", "HTTP endpoint used to generate quiz questions (env: QUIZRUNNER_QUESTION_PROVIDER_URL)")
	fs.StringVar(&cfg.HintProviderURL, "hint-provider-url", "", "HTTP endpoint used to generate answer hints (env: QUIZRUNNER_HINT_PROVIDER_URL)")
	fs.StringVar(&cfg.HintProviderAPIKey, "hint-provider-api-key", "", "API key for the hint provider (env: QUIZRUNNER_HINT_PROVIDER_API_KEY)")
	fs.StringVar(&cfg.AvatarLookupURL, "avatar-lookup-url", "https://api.github.com/users", "base URL used to resolve player GitHub avatars (env: QUIZRUNNER_AVATAR_LOOKUP_URL)")

	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "comma-separated list of allowed CORS origins (env: QUIZRUNNER_ALLOWED_ORIGINS)")

	fs.StringVar(&cfg.LogFile, "log-file", "", "path to log file; empty disables file logging (env: QUIZRUNNER_LOG_FILE)")
	fs.IntVar(&cfg.LogMaxSizeMB, "log-max-size-mb", 100, "max size in MB before log rotation (env: QUIZRUNNER_LOG_MAX_SIZE_MB)")
	fs.IntVar(&cfg.LogMaxBackups, "log-max-backups", 5, "max rotated log files to retain (env: QUIZRUNNER_LOG_MAX_BACKUPS)")
	fs.IntVar(&cfg.LogMaxAgeDays, "log-max-age-days", 28, "max age in days to retain rotated logs (env: QUIZRUNNER_LOG_MAX_AGE_DAYS)")

	fs.DurationVar(&cfg.QuestionTimeLimit, "question-time-limit", 30*time.Second, "validated but not applied: the engine's answer window is fixed at 30s (env: QUIZRUNNER_QUESTION_TIME_LIMIT)")
	fs.DurationVar(&cfg.HostPollInterval, "host-poll-interval", 500*time.Millisecond, "not applied: player connections poll for host-driven state changes every 500ms (env: QUIZRUNNER_HOST_POLL_INTERVAL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
