// Package main 是均值回归信号生成器的入口点。
// 从价格来源逐条读取价格，维护滑动窗口均值并输出 Buy/Sell/Hold 决策。
//
// 重要：本程序只输出信号，不下单。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
	sigengine "mean-reversion-signal/internal/core/signal"
	"mean-reversion-signal/internal/feed"
	"mean-reversion-signal/internal/feed/binance"
	"mean-reversion-signal/internal/output/jsonl"
	"mean-reversion-signal/internal/stats/decisions"
	"mean-reversion-signal/internal/stats/latency"
	"mean-reversion-signal/internal/util/fastparse"
	"mean-reversion-signal/internal/util/timeutil"
)

type metricsSnapshot struct {
	// TsUnixNs 指标采集时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Symbol 交易对
	Symbol string `json:"symbol"`
	// WindowSize 窗口大小
	WindowSize int `json:"window_size"`
	// Threshold 触发阈值
	Threshold float64 `json:"threshold"`
	// MeanMode 均值模式
	MeanMode string `json:"mean_mode"`
	// Decisions 决策统计
	Decisions decisions.DecisionStats `json:"decisions"`
	// Latency 处理时延统计
	Latency latency.LatencyStats `json:"latency"`
	// Feed 实时行情连接指标（仅 binance 来源）
	Feed *binance.ConnectionMetrics `json:"feed,omitempty"`
}

// connMetricser 提供连接指标的价格来源
type connMetricser interface {
	Metrics() binance.ConnectionMetrics
}

// pipeline 单 goroutine 驱动：价格 → 引擎 → stdout/JSONL
type pipeline struct {
	logger    *zap.Logger
	engine    *sigengine.Engine
	stdout    io.Writer
	decisions *jsonl.Writer
	tally     *decisions.Tally
	latency   *latency.Tracker
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径（为空时运行内置演示）")
	flag.Parse()

	cfg := config.Demo()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("运行失败", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// run 组装组件并驱动价格流，直到来源耗尽或 ctx 取消
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	engine, err := sigengine.NewEngine(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("创建信号引擎失败: %w", err)
	}

	src, err := feed.New(&cfg.Feed, cfg.Output.BufferSize, logger)
	if err != nil {
		return fmt.Errorf("创建价格来源失败: %w", err)
	}

	var decisionsWriter, metricsWriter *jsonl.Writer
	if cfg.Output.DecisionsEnabled {
		decisionsWriter, err = jsonl.NewWriter(filepath.Join(cfg.Output.Dir, "decisions.jsonl"), cfg.Output.BufferSize)
		if err != nil {
			return fmt.Errorf("创建 decisions writer 失败: %w", err)
		}
	}
	if cfg.Output.MetricsEnabled {
		metricsWriter, err = jsonl.NewWriter(filepath.Join(cfg.Output.Dir, "metrics.jsonl"), cfg.Output.BufferSize)
		if err != nil {
			_ = decisionsWriter.Close()
			return fmt.Errorf("创建 metrics writer 失败: %w", err)
		}
	}

	logger.Info("信号引擎启动",
		zap.String("source", cfg.Feed.Source),
		zap.String("symbol", cfg.Feed.Symbol),
		zap.Int("window_size", engine.WindowSize()),
		zap.Float64("threshold", engine.Threshold()),
		zap.String("mean_mode", engine.Mode()),
	)

	p := &pipeline{
		logger:    logger,
		engine:    engine,
		stdout:    stdout,
		decisions: decisionsWriter,
		tally:     decisions.NewTally(1000),
		latency:   latency.NewTracker(10000),
	}

	srcErrCh := make(chan error, 1)
	go func() { srcErrCh <- src.Run(ctx) }()

	for tick := range src.Ticks() {
		p.handleTick(tick)
	}
	srcErr := <-srcErrCh
	if errors.Is(srcErr, context.Canceled) {
		srcErr = nil
	}

	// 输出最后一条 metrics 快照（便于离线复盘）
	if metricsWriter != nil {
		snap := metricsSnapshot{
			TsUnixNs:   timeutil.NowNano(),
			Symbol:     cfg.Feed.Symbol,
			WindowSize: engine.WindowSize(),
			Threshold:  engine.Threshold(),
			MeanMode:   engine.Mode(),
			Decisions:  p.tally.Stats(),
			Latency:    p.latency.Stats(),
		}
		if m, ok := src.(connMetricser); ok {
			feedMetrics := m.Metrics()
			snap.Feed = &feedMetrics
		}
		if err := metricsWriter.Write(snap); err != nil {
			logger.Warn("写入指标快照失败", zap.Error(err))
		}
	}

	stats := p.tally.Stats()
	logger.Info("价格流结束",
		zap.Int64("evaluated", stats.Count),
		zap.Int64("buy", stats.BuyCount),
		zap.Int64("sell", stats.SellCount),
		zap.Int64("hold", stats.HoldCount),
	)

	if err := closeWriters(decisionsWriter, metricsWriter); err != nil {
		logger.Warn("关闭输出文件失败", zap.Error(err))
	}

	if srcErr != nil {
		return fmt.Errorf("价格来源异常退出: %w", srcErr)
	}
	return nil
}

// handleTick 评估一条价格并分发结果
func (p *pipeline) handleTick(tick *model.Tick) {
	if tick == nil {
		return
	}

	decision := p.engine.Evaluate(tick.Price)
	nowNs := timeutil.NowNano()
	p.latency.Add(tick, nowNs)

	rec := &model.DecisionRecord{
		TsUnixNs:  nowNs,
		Source:    tick.Source,
		Symbol:    tick.Symbol,
		Price:     tick.Price,
		Mean:      p.engine.Mean(),
		Reference: p.engine.Reference(),
		WindowLen: p.engine.Len(),
		Decision:  decision,
		MeanMode:  p.engine.Mode(),
	}
	p.tally.Add(rec)

	if decision.IsAction() {
		fmt.Fprintf(p.stdout, "Action: %s at price %s\n", decision.Action(), fastparse.FormatFloat(tick.Price, -1))
	}
	p.logger.Debug("评估完成",
		zap.Float64("price", tick.Price),
		zap.Float64("mean", rec.Mean),
		zap.String("decision", string(decision)),
	)

	if p.decisions != nil {
		if err := p.decisions.Write(rec); err != nil {
			p.logger.Warn("写入决策记录失败", zap.Error(err))
		}
	}
}

// closeWriters 在限定时间内关闭输出（10s 超时）
func closeWriters(writers ...*jsonl.Writer) error {
	done := make(chan error, 1)
	go func() {
		var err error
		for _, w := range writers {
			err = multierr.Append(err, w.Close())
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("关闭超时")
	}
}
