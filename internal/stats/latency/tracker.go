// Package latency 统计价格处理时延。
// 两类时延：
// - eval: 价格到达 → 决策产生（本地处理耗时）
// - feed: 交易所事件时间 → 价格到达（行情链路耗时，仅实时来源）
package latency

import (
	"sort"
	"sync"

	"mean-reversion-signal/internal/core/model"
)

// LatencyStats 时延统计快照（滚动窗口），单位毫秒
type LatencyStats struct {
	// Count 样本总数（累计）
	Count int64 `json:"count"`

	// EvalP50Ms 到达→决策 P50
	EvalP50Ms float64 `json:"eval_p50_ms"`
	// EvalP90Ms 到达→决策 P90
	EvalP90Ms float64 `json:"eval_p90_ms"`
	// EvalP99Ms 到达→决策 P99
	EvalP99Ms float64 `json:"eval_p99_ms"`

	// FeedCount 带交易所时间戳的样本数
	FeedCount int64 `json:"feed_count"`
	// FeedP50Ms 交易所事件→到达 P50
	FeedP50Ms float64 `json:"feed_p50_ms"`
	// FeedP90Ms 交易所事件→到达 P90
	FeedP90Ms float64 `json:"feed_p90_ms"`
	// FeedP99Ms 交易所事件→到达 P99
	FeedP99Ms float64 `json:"feed_p99_ms"`
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64

	mu sync.Mutex
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if len(w.buf) < w.size {
		w.buf = append(w.buf, v)
		return
	}
	w.buf[w.pos] = v
	w.pos = (w.pos + 1) % w.size
}

// quantiles 返回累计样本数与窗口内各分位数（最近秩）
func (w *rollingWindow) quantiles(qs ...float64) (count int64, values []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	values = make([]int64, len(qs))
	if len(w.buf) == 0 {
		return w.count, values
	}

	tmp := make([]int64, len(w.buf))
	copy(tmp, w.buf)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	n := len(tmp)
	for i, q := range qs {
		switch {
		case q <= 0:
			values[i] = tmp[0]
		case q >= 1:
			values[i] = tmp[n-1]
		default:
			values[i] = tmp[int(float64(n-1)*q)]
		}
	}
	return w.count, values
}

// Tracker 时延追踪器
type Tracker struct {
	eval *rollingWindow
	feed *rollingWindow
}

// NewTracker 创建时延追踪器
// 参数 windowSize: 滚动窗口大小（建议 10000），<=0 时取 10000
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 10000
	}
	return &Tracker{
		eval: newRollingWindow(windowSize),
		feed: newRollingWindow(windowSize),
	}
}

// Add 记录一条价格的处理时延
// 参数 decidedAtNs: 决策产生时间（纳秒）
func (t *Tracker) Add(tick *model.Tick, decidedAtNs int64) {
	if tick == nil || tick.ArrivedAtUnixNs <= 0 {
		return
	}
	t.eval.add(decidedAtNs - tick.ArrivedAtUnixNs)
	if tick.ExchTsUnixMs > 0 {
		t.feed.add(tick.ArrivedAtUnixNs - tick.ExchTsUnixMs*1_000_000)
	}
}

// Stats 获取统计快照
func (t *Tracker) Stats() LatencyStats {
	evalCount, evalQs := t.eval.quantiles(0.50, 0.90, 0.99)
	feedCount, feedQs := t.feed.quantiles(0.50, 0.90, 0.99)

	return LatencyStats{
		Count:     evalCount,
		EvalP50Ms: nsToMs(evalQs[0]),
		EvalP90Ms: nsToMs(evalQs[1]),
		EvalP99Ms: nsToMs(evalQs[2]),
		FeedCount: feedCount,
		FeedP50Ms: nsToMs(feedQs[0]),
		FeedP90Ms: nsToMs(feedQs[1]),
		FeedP99Ms: nsToMs(feedQs[2]),
	}
}

func nsToMs(ns int64) float64 {
	return float64(ns) / 1_000_000.0
}
