// Package jsonl 实现异步 JSONL 文件写入。
// Write 只投递到带缓冲的 channel，编码与文件 I/O 在后台 goroutine 完成。
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ErrClosed 写入器已关闭
var ErrClosed = errors.New("jsonl writer 已关闭")

type request struct {
	// val 待写入记录；为 nil 时表示 flush/close 控制请求
	val any
	// final 是否为关闭请求
	final bool
	done  chan error
}

// Writer 异步 JSONL 写入器
type Writer struct {
	// path 输出文件路径
	path string
	// ch 请求通道
	ch chan request

	// mu 保证关闭后不再向 ch 投递
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup

	// written 成功写入的记录数
	written int64
	// encodeErrors 编码/写入失败的记录数
	encodeErrors int64
}

// NewWriter 创建 JSONL 写入器（追加模式，自动创建目录）
// 参数 path: 输出文件路径
// 参数 bufferSize: channel 容量，<=0 时取 1000
func NewWriter(path string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path: path,
		ch:   make(chan request, bufferSize),
	}
	w.wg.Add(1)
	go w.loop(f)
	return w, nil
}

// Path 输出文件路径
func (w *Writer) Path() string {
	return w.path
}

// Write 异步写入一条记录
// 返回: 写入器为 nil 或已关闭时返回错误
func (w *Writer) Write(v any) error {
	if w == nil {
		return ErrClosed
	}
	if v == nil {
		return fmt.Errorf("jsonl: 记录不能为 nil")
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	w.ch <- request{val: v}
	return nil
}

// Flush 等待此前投递的记录全部写入文件缓冲并刷盘
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	done := make(chan error, 1)
	w.ch <- request{done: done}
	w.mu.RUnlock()
	return <-done
}

// Close 刷盘并关闭文件，可重复调用
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		done := make(chan error, 1)
		w.ch <- request{final: true, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

// Written 已成功写入的记录数
func (w *Writer) Written() int64 {
	return atomic.LoadInt64(&w.written)
}

// EncodeErrors 编码或写入失败的记录数
func (w *Writer) EncodeErrors() int64 {
	return atomic.LoadInt64(&w.encodeErrors)
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()

	bw := bufio.NewWriterSize(f, 1<<20) // 1MB buffer
	enc := json.NewEncoder(bw)

	for req := range w.ch {
		if req.val != nil {
			// Encoder 自动追加换行
			if err := enc.Encode(req.val); err != nil {
				atomic.AddInt64(&w.encodeErrors, 1)
				continue
			}
			atomic.AddInt64(&w.written, 1)
			continue
		}

		err := bw.Flush()
		if req.final {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			req.done <- err
			return
		}
		req.done <- err
	}
}
