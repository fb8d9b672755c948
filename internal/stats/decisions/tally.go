// Package decisions 统计决策分布。
// 累计计数 + 最近 N 次决策的滚动分布（O(1) 更新）。
package decisions

import (
	"math"

	"mean-reversion-signal/internal/core/model"
)

// DecisionStats 决策统计快照
type DecisionStats struct {
	// Count 累计评估次数
	Count int64 `json:"count"`
	// BuyCount 累计 Buy 次数
	BuyCount int64 `json:"buy_count"`
	// SellCount 累计 Sell 次数
	SellCount int64 `json:"sell_count"`
	// HoldCount 累计 Hold 次数
	HoldCount int64 `json:"hold_count"`

	// RecentCount 滚动窗口内样本数
	RecentCount int `json:"recent_count"`
	// RecentActionRate 滚动窗口内非 Hold 占比
	RecentActionRate float64 `json:"recent_action_rate"`

	// LastPrice 最近一次价格
	LastPrice float64 `json:"last_price"`
	// LastMean 最近一次窗口均值
	LastMean float64 `json:"last_mean"`
	// MaxAbsDeviation 累计最大 |price - reference|
	MaxAbsDeviation float64 `json:"max_abs_deviation"`
}

// Tally 决策统计器
// 非并发安全：由驱动循环单 goroutine 调用。
type Tally struct {
	// windowSize 滚动窗口大小
	windowSize int
	// buf 环形缓冲区
	buf []model.Decision
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool

	count     int64
	buyCount  int64
	sellCount int64
	holdCount int64

	// recentActions 滚动窗口内非 Hold 个数
	recentActions int

	lastPrice float64
	lastMean  float64
	maxAbsDev float64
}

// NewTally 创建统计器
// 参数 windowSize: 滚动窗口大小，<=0 时取 1000
func NewTally(windowSize int) *Tally {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Tally{
		windowSize: windowSize,
		buf:        make([]model.Decision, windowSize),
	}
}

// Add 记录一次评估
func (t *Tally) Add(rec *model.DecisionRecord) {
	if rec == nil {
		return
	}

	// 环已满时移除最旧样本的贡献
	if t.full && t.buf[t.pos].IsAction() {
		t.recentActions--
	}
	t.buf[t.pos] = rec.Decision
	t.pos++
	if t.pos >= t.windowSize {
		t.pos = 0
		t.full = true
	}
	if rec.Decision.IsAction() {
		t.recentActions++
	}

	t.count++
	switch rec.Decision {
	case model.DecisionBuy:
		t.buyCount++
	case model.DecisionSell:
		t.sellCount++
	default:
		t.holdCount++
	}

	t.lastPrice = rec.Price
	t.lastMean = rec.Mean
	if dev := math.Abs(rec.Price - rec.Reference); dev > t.maxAbsDev {
		t.maxAbsDev = dev
	}
}

// Stats 返回统计快照
func (t *Tally) Stats() DecisionStats {
	recent := t.pos
	if t.full {
		recent = t.windowSize
	}
	out := DecisionStats{
		Count:           t.count,
		BuyCount:        t.buyCount,
		SellCount:       t.sellCount,
		HoldCount:       t.holdCount,
		RecentCount:     recent,
		LastPrice:       t.lastPrice,
		LastMean:        t.lastMean,
		MaxAbsDeviation: t.maxAbsDev,
	}
	if recent > 0 {
		out.RecentActionRate = float64(t.recentActions) / float64(recent)
	}
	return out
}
