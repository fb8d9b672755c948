// Package window 实现固定容量的价格滑动窗口（环形缓冲区）。
// 超出容量时严格按 FIFO 淘汰最早的观测。
package window

import "errors"

// ErrEmptyWindow 窗口为空，均值无定义
var ErrEmptyWindow = errors.New("窗口为空，无法计算均值")

// Window 固定容量 FIFO 窗口
// 非并发安全：由单个 goroutine 持有。
type Window struct {
	// buf 环形缓冲区
	buf []float64
	// head 最早元素所在位置
	head int
	// n 当前元素个数
	n int
}

// New 创建窗口
// 参数 capacity: 最大保留观测数，<=0 时按 1 处理（调用方应先校验）
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push 在尾部追加一个值
// 若追加后超出容量，淘汰头部最早的值并返回 (evicted, true)。
func (w *Window) Push(v float64) (evicted float64, ok bool) {
	capacity := len(w.buf)
	if w.n < capacity {
		w.buf[(w.head+w.n)%capacity] = v
		w.n++
		return 0, false
	}

	// 已满：覆盖最早的位置，head 前移
	evicted = w.buf[w.head]
	w.buf[w.head] = v
	w.head = (w.head + 1) % capacity
	return evicted, true
}

// Len 当前元素个数
func (w *Window) Len() int {
	return w.n
}

// Cap 窗口容量
func (w *Window) Cap() int {
	return len(w.buf)
}

// Full 是否已填满
func (w *Window) Full() bool {
	return w.n == len(w.buf)
}

// Values 按插入顺序（最早在前）返回窗口内容的拷贝
func (w *Window) Values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Sum 窗口内所有值之和
// 每次按窗口内容重新求和，不做增量维护。
func (w *Window) Sum() float64 {
	var sum float64
	for i := 0; i < w.n; i++ {
		sum += w.buf[(w.head+i)%len(w.buf)]
	}
	return sum
}

// Mean 窗口算术均值
// 返回: 窗口为空时返回 ErrEmptyWindow
func (w *Window) Mean() (float64, error) {
	if w.n == 0 {
		return 0, ErrEmptyWindow
	}
	return w.Sum() / float64(w.n), nil
}

// Reset 清空窗口（保留容量）
func (w *Window) Reset() {
	w.head = 0
	w.n = 0
}
