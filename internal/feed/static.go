package feed

import (
	"context"

	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/util/timeutil"
)

// StaticSource 按顺序输出固定价格序列
type StaticSource struct {
	symbol string
	prices []float64
	ch     chan *model.Tick
}

// NewStaticSource 创建静态价格来源
func NewStaticSource(symbol string, prices []float64, bufferSize int) *StaticSource {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &StaticSource{
		symbol: symbol,
		prices: append([]float64(nil), prices...),
		ch:     make(chan *model.Tick, bufferSize),
	}
}

// Run 依次输出所有价格后关闭通道
func (s *StaticSource) Run(ctx context.Context) error {
	defer close(s.ch)
	for _, p := range s.prices {
		tick := &model.Tick{
			Source:          model.SourceStatic,
			Symbol:          s.symbol,
			Price:           p,
			ArrivedAtUnixNs: timeutil.NowNano(),
		}
		if err := emit(ctx, s.ch, tick); err != nil {
			return err
		}
	}
	return nil
}

// Ticks 价格输出通道
func (s *StaticSource) Ticks() <-chan *model.Tick {
	return s.ch
}
