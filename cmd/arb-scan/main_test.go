package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/scanner"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(zap.InfoLevel)
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	assert.NotPanics(t, func() {
		logger.Info("test message")
	})
}

func TestBuildSink_LogOnlyWithoutRedis(t *testing.T) {
	logger, err := newLogger(zap.InfoLevel)
	assert.NoError(t, err)

	sink := buildSink(&config.Config{}, logger)
	_, ok := sink.(scanner.LogSink)
	assert.True(t, ok, "without a Redis addr only the log sink is wired")
}

func TestBuildSink_FansOutWithRedis(t *testing.T) {
	logger, err := newLogger(zap.InfoLevel)
	assert.NoError(t, err)

	cfg := &config.Config{}
	cfg.Redis.Addr = "localhost:6379"
	sink := buildSink(cfg, logger)
	multi, ok := sink.(scanner.MultiSink)
	assert.True(t, ok)
	assert.Len(t, multi, 2)
}
