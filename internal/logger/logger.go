package logger

import (
	"go.uber.org/zap"
	"timed-quiz-service/internal/config"
)

func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}
