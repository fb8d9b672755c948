// Package feed 提供价格来源：静态序列、文本文件、Binance 实时成交。
// 所有来源在独立 goroutine 中运行，通过带缓冲 channel 输出 Tick。
package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/feed/binance"
)

// Source 价格来源
type Source interface {
	// Run 持续产出价格，直到数据耗尽、出错或 ctx 取消；返回前关闭 Ticks 通道
	Run(ctx context.Context) error
	// Ticks 价格输出通道
	Ticks() <-chan *model.Tick
}

// New 按配置创建价格来源
func New(cfg *config.FeedConfig, bufferSize int, logger *zap.Logger) (Source, error) {
	switch cfg.Source {
	case config.FeedStatic:
		return NewStaticSource(cfg.Symbol, cfg.Prices, bufferSize), nil
	case config.FeedFile:
		return NewFileSource(cfg.File, cfg.Symbol, bufferSize, logger), nil
	case config.FeedBinance:
		return binance.NewClient(&cfg.Binance, cfg.Symbol, bufferSize, logger), nil
	default:
		return nil, fmt.Errorf("未知的价格来源: %s", cfg.Source)
	}
}

// emit 投递一条价格，ctx 取消时放弃
func emit(ctx context.Context, ch chan<- *model.Tick, tick *model.Tick) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- tick:
		return nil
	}
}
