// Package backoff 实现行情断线重连的指数退避。
// 等待时间 base * 2^attempt，不超过 max，并叠加 ±jitter 抖动。
package backoff

import (
	"math/rand"
	"time"
)

// Backoff 指数退避计算器
// 非并发安全：由单个重连循环持有。
type Backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64

	// attempt 当前重试次数
	attempt int
	// capped 已达到 max，后续不再翻倍（避免位移溢出）
	capped bool
}

// New 创建退避计算器
// 参数 base: 基础等待时间
// 参数 max: 最大等待时间，小于 base 时取 base
// 参数 jitter: 抖动比例（0-1），超出范围时截断
func New(base, max time.Duration, jitter float64) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &Backoff{base: base, max: max, jitter: jitter}
}

// NewDefault 基础 1s、最大 30s、抖动 ±20%
func NewDefault() *Backoff {
	return New(time.Second, 30*time.Second, 0.2)
}

// Next 获取下次重试的等待时间
func (b *Backoff) Next() time.Duration {
	delay := b.max
	if !b.capped {
		delay = b.base << uint(b.attempt)
		// 左移溢出为负或超过 max 时固定为 max
		if delay <= 0 || delay >= b.max {
			delay = b.max
			b.capped = true
		}
	}
	b.attempt++

	if b.jitter > 0 {
		factor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * factor)
	}
	return delay
}

// Reset 连接成功后重置
func (b *Backoff) Reset() {
	b.attempt = 0
	b.capped = false
}

// Attempt 当前重试次数
func (b *Backoff) Attempt() int {
	return b.attempt
}
