// Package logging builds the zap logger shared by the server, the worker and the CLI.
package logging

import (
	"fmt"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger when environment is
// "development". level accepts any zapcore level name; unknown names fall back to info.
func New(environment, level string) (*zap.Logger, error) {
	var config zap.Config
	if environment == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", "reminddo")), nil
}

func Operation(name string) zap.Field {
	return zap.String("operation", name)
}

func UserID(id uuid.UUID) zap.Field {
	return zap.String("user_id", id.String())
}

func TaskID(id uuid.UUID) zap.Field {
	return zap.String("task_id", id.String())
}

func Err(err error) zap.Field {
	return zap.Error(err)
}
