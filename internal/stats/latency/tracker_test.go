// Package latency 时延追踪器测试
package latency

import (
	"math"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mean-reversion-signal/internal/core/model"
)

func TestTracker_SingleSample(t *testing.T) {
	tr := NewTracker(100)
	tr.Add(&model.Tick{ArrivedAtUnixNs: 5_000_000, ExchTsUnixMs: 3}, 7_500_000)

	s := tr.Stats()
	if s.Count != 1 || s.FeedCount != 1 {
		t.Fatalf("Count=%d FeedCount=%d, want 1 1", s.Count, s.FeedCount)
	}
	if s.EvalP50Ms != 2.5 || s.EvalP99Ms != 2.5 {
		t.Fatalf("EvalP50Ms=%v EvalP99Ms=%v, want 2.5", s.EvalP50Ms, s.EvalP99Ms)
	}
	// 到达 5ms - 交易所 3ms = 2ms
	if s.FeedP50Ms != 2 {
		t.Fatalf("FeedP50Ms=%v, want 2", s.FeedP50Ms)
	}
}

func TestTracker_IgnoresInvalid(t *testing.T) {
	tr := NewTracker(10)
	tr.Add(nil, 1)
	tr.Add(&model.Tick{}, 1)
	// 无交易所时间戳：只记录 eval
	tr.Add(&model.Tick{ArrivedAtUnixNs: 1}, 2)

	s := tr.Stats()
	if s.Count != 1 || s.FeedCount != 0 {
		t.Fatalf("Count=%d FeedCount=%d, want 1 0", s.Count, s.FeedCount)
	}
}

func TestTracker_Quantiles_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("窗口内分位数与排序结果一致", prop.ForAll(
		func(lagsUs []int64) bool {
			if len(lagsUs) == 0 {
				return true
			}
			windowSize := 16
			tr := NewTracker(windowSize)
			base := int64(1_000_000_000)
			for _, us := range lagsUs {
				tr.Add(&model.Tick{ArrivedAtUnixNs: base}, base+us*1000)
			}

			start := 0
			if len(lagsUs) > windowSize {
				start = len(lagsUs) - windowSize
			}
			recent := append([]int64(nil), lagsUs[start:]...)
			sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })
			n := len(recent)
			want50 := float64(recent[int(float64(n-1)*0.5)]*1000) / 1_000_000.0
			want99 := float64(recent[int(float64(n-1)*0.99)]*1000) / 1_000_000.0

			s := tr.Stats()
			return s.Count == int64(len(lagsUs)) &&
				math.Abs(s.EvalP50Ms-want50) < 1e-9 &&
				math.Abs(s.EvalP99Ms-want99) < 1e-9
		},
		gen.SliceOf(gen.Int64Range(0, 10_000_000)),
	))

	properties.TestingRun(t)
}
