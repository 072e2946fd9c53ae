package logger_test

import (
	"errors"

	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/logger"
)

// Example_withFields demonstrates run-scoped structured logging
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	runLog := log.WithField("run_id", "6f1c2a8e")
	runLog.WithFields(map[string]interface{}{
		"symbol":          "AAPL",
		"signal_strength": 0.75,
	}).Info("Symbol matched")

	runLog.WithError(errors.New("quote timeout")).
		WithField("symbol", "TSLA").
		Warn("Symbol failed")
}
