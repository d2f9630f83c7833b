// Package logging wires up zerolog with optional lumberjack-backed file
// rotation, grounded on _examples/hmcalister-TwentyQuestions/main.go's
// logging setup block.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"quizrunner/internal/config"
)

// Setup configures the global zerolog logger per cfg and returns it. When
// cfg.LogFile is empty, output goes to stdout only. Verbose mode adds a
// console writer alongside the file writer and drops the level to debug.
func Setup(cfg *config.Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := log.With().Timestamp().Caller().Logger()

	var writer zerolog.ConsoleWriter
	writer.Out = os.Stdout

	if cfg.LogFile == "" {
		logger = logger.Output(writer)
	} else {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		if cfg.Verbose {
			logger = logger.Output(zerolog.MultiLevelWriter(writer, fileWriter))
		} else {
			logger = logger.Output(fileWriter)
		}
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = logger
	return logger
}
