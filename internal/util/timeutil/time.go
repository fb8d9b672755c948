// Package timeutil 提供高精度时间戳工具。
// 用于价格到达时间与决策记录的时间戳。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前 Unix 纳秒时间戳
// 基于“单调时钟 + 启动时 Unix 时间”，系统时间跳变时仍保持单调。
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NanoToTime 将纳秒时间戳转换为 time.Time
func NanoToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}

// Millis 将毫秒配置值转换为 time.Duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
