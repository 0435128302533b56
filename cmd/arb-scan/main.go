package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/connectors/rest"
	"github.com/you/arb-scan/internal/evaluator"
	"github.com/you/arb-scan/internal/fees"
	"github.com/you/arb-scan/internal/marketcache"
	"github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/priority"
	"github.com/you/arb-scan/internal/redisfeed"
	"github.com/you/arb-scan/internal/risk"
	"github.com/you/arb-scan/internal/scanner"
	"github.com/you/arb-scan/internal/symbols"
	"github.com/you/arb-scan/internal/types"
	"github.com/you/arb-scan/internal/wsfeed"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := zap.InfoLevel
	if *debug {
		level = zap.DebugLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	norm := symbols.New()
	provider := rest.NewClient(cfg, logger)
	cache := marketcache.New(provider, marketcache.SystemClock, cfg.TickerTTL(), cfg.BookTTL(), logger)

	schedule := fees.NewSchedule(cfg.Fees)
	riskEng := risk.NewEngine(0)
	eval := evaluator.New(cfg.MinProfitPct, schedule, riskEng, logger)

	prio := priority.New(priority.Weights{
		Volume:     cfg.Priority.VolumeWeight,
		Volatility: cfg.Priority.VolatilityWeight,
		History:    cfg.Priority.HistoryWeight,
	}, cfg.RecomputeInterval(), nil)
	prio.Seed(cfg.DefaultSymbols)

	sink := buildSink(cfg, logger)

	if cfg.Feed.WsURL != "" && cfg.Feed.Exchange != "" {
		natives := make([]string, 0, len(cfg.DefaultSymbols))
		for _, s := range cfg.DefaultSymbols {
			natives = append(natives, norm.Normalize(s, cfg.Feed.Exchange))
		}
		go wsfeed.Pump(ctx, cfg.Feed.WsURL, cfg.Feed.Exchange, natives,
			func(native string) string { return norm.Normalize(native, cfg.Feed.Exchange) },
			func(exchange, symbol string, bid, ask float64, ts time.Time) {
				cache.PutTicker(types.TickerSnapshot{
					Exchange:   exchange,
					Symbol:     symbol,
					Bid:        bid,
					Ask:        ask,
					CapturedAt: ts,
				})
			},
			logger)
	}

	sc := scanner.New(cfg, cache, norm, eval, prio, sink, logger)
	sc.Run(ctx)
}

func buildSink(cfg *config.Config, logger *zap.Logger) scanner.Sink {
	logSink := scanner.LogSink{Log: logger}
	if cfg.Redis.Addr == "" {
		return logSink
	}
	pub := redisfeed.NewPublisher(cfg)
	return scanner.MultiSink{
		logSink,
		redisfeed.Sink{
			Pub: pub,
			OnFail: func(err error) {
				logger.Warn("redis publish failed", zap.Error(err))
			},
		},
	}
}
