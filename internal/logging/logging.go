package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"xkart/internal/config"
)

// Init configures the global zerolog logger from config. With a file
// configured, output goes there through a size-capped writer instead of
// stdout.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil {
			level = parsed
		}
	}

	var output io.Writer = os.Stdout
	if cfg.File != "" {
		if w, err := newFileWriter(cfg); err == nil {
			output = w
		}
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}
