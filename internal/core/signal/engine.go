// Package signal 实现滑动窗口均值回归信号。
// 维护最近 N 个价格，比较最新价格与窗口均值的偏离，输出 Buy/Sell/Hold。
package signal

import (
	"errors"
	"fmt"
	"math"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/core/window"
)

var (
	// ErrConfig 构造参数错误
	ErrConfig = errors.New("信号配置错误")
	// ErrInvalidWindowSize 窗口大小 < 1
	ErrInvalidWindowSize = fmt.Errorf("%w: 窗口大小必须 >= 1", ErrConfig)
	// ErrInvalidThreshold 阈值为负数或非有限数
	ErrInvalidThreshold = fmt.Errorf("%w: 阈值必须为非负有限数", ErrConfig)
	// ErrInvalidMeanMode 未知的均值模式
	ErrInvalidMeanMode = fmt.Errorf("%w: 均值模式必须为 post 或 pre", ErrConfig)
)

// Engine 均值回归信号引擎（单交易对）
// 非并发安全：由驱动循环单 goroutine 调用，跨 goroutine 使用需调用方加锁。
type Engine struct {
	// windowSize 窗口大小
	windowSize int
	// threshold 触发阈值
	threshold float64
	// mode 均值模式: post 或 pre
	mode string

	// history 最近价格窗口
	history *window.Window
	// mean 最近一次 Evaluate 后的窗口均值，首次评估前为 0
	mean float64
	// reference 最近一次 Evaluate 用于比较的均值
	reference float64
}

// New 创建信号引擎（post 模式）
// 参数 windowSize: 窗口大小，必须 >= 1
// 参数 threshold: 触发阈值，必须为非负有限数
func New(windowSize int, threshold float64) (*Engine, error) {
	return newEngine(windowSize, threshold, config.MeanModePost)
}

// NewEngine 按策略配置创建信号引擎
func NewEngine(cfg config.StrategyConfig) (*Engine, error) {
	mode := cfg.MeanMode
	if mode == "" {
		mode = config.MeanModePost
	}
	return newEngine(cfg.WindowSize, cfg.Threshold, mode)
}

func newEngine(windowSize int, threshold float64, mode string) (*Engine, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w（当前值: %d）", ErrInvalidWindowSize, windowSize)
	}
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w（当前值: %f）", ErrInvalidThreshold, threshold)
	}
	if mode != config.MeanModePost && mode != config.MeanModePre {
		return nil, fmt.Errorf("%w（当前值: %s）", ErrInvalidMeanMode, mode)
	}
	return &Engine{
		windowSize: windowSize,
		threshold:  threshold,
		mode:       mode,
		history:    window.New(windowSize),
	}, nil
}

// AddObservation 追加一个价格到窗口尾部，超出窗口大小时淘汰最早的一个
// 非有限价格不会被拒绝，由调用方保证价格为有限数。
func (e *Engine) AddObservation(price float64) {
	e.history.Push(price)
}

// CurrentMean 计算当前窗口的算术均值
// 返回: 窗口为空时返回 window.ErrEmptyWindow
func (e *Engine) CurrentMean() (float64, error) {
	return e.history.Mean()
}

// Evaluate 输入最新价格并给出决策
// 步骤：插入价格 → 重新计算并保存均值 → 比较。
// post 模式下比较基准包含本次价格本身；pre 模式下使用插入前的均值，
// 插入前窗口为空时返回 Hold。
func (e *Engine) Evaluate(price float64) model.Decision {
	reference, hasReference := 0.0, true
	if e.mode == config.MeanModePre {
		var err error
		reference, err = e.history.Mean()
		hasReference = err == nil
	}

	e.AddObservation(price)
	// 刚插入过价格，窗口不可能为空
	e.mean, _ = e.CurrentMean()

	if e.mode == config.MeanModePost {
		reference = e.mean
	}
	e.reference = reference
	if !hasReference {
		return model.DecisionHold
	}

	if e.shouldBuy(reference, price) {
		return model.DecisionBuy
	}
	if e.shouldSell(reference, price) {
		return model.DecisionSell
	}
	return model.DecisionHold
}

// shouldBuy 价格低于均值超过阈值（严格大于）
func (e *Engine) shouldBuy(mean, price float64) bool {
	return mean-price > e.threshold
}

// shouldSell 价格高于均值超过阈值（严格大于）
func (e *Engine) shouldSell(mean, price float64) bool {
	return price-mean > e.threshold
}

// Mean 最近一次 Evaluate 后保存的均值，首次评估前为 0
func (e *Engine) Mean() float64 {
	return e.mean
}

// Reference 最近一次 Evaluate 用于比较的均值
func (e *Engine) Reference() float64 {
	return e.reference
}

// History 返回窗口内容拷贝（最早在前）
func (e *Engine) History() []float64 {
	return e.history.Values()
}

// Len 当前窗口长度
func (e *Engine) Len() int {
	return e.history.Len()
}

// WindowSize 窗口大小
func (e *Engine) WindowSize() int {
	return e.windowSize
}

// Threshold 触发阈值
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Mode 均值模式
func (e *Engine) Mode() string {
	return e.mode
}
