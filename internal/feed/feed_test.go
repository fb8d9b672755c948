// Package feed 价格来源测试
package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/feed/binance"
)

// collect 运行来源并收集全部价格
func collect(t *testing.T, src Source) ([]*model.Tick, error) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- src.Run(context.Background()) }()

	var ticks []*model.Tick
	for tick := range src.Ticks() {
		ticks = append(ticks, tick)
	}
	return ticks, <-errCh
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource("DEMO", config.DemoPrices, 4)
	ticks, err := collect(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ticks) != len(config.DemoPrices) {
		t.Fatalf("len(ticks)=%d, want %d", len(ticks), len(config.DemoPrices))
	}
	for i, tick := range ticks {
		if tick.Price != config.DemoPrices[i] {
			t.Fatalf("ticks[%d].Price=%v, want %v", i, tick.Price, config.DemoPrices[i])
		}
		if tick.Source != model.SourceStatic || tick.Symbol != "DEMO" || tick.ArrivedAtUnixNs == 0 {
			t.Fatalf("ticks[%d]=%+v", i, tick)
		}
	}
}

func TestStaticSource_Cancel(t *testing.T) {
	// 缓冲为 1 且无人读取，第二条价格阻塞直到 ctx 取消
	src := NewStaticSource("DEMO", []float64{1, 2, 3}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := src.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want nil or context.Canceled", err)
	}
	// 通道应已关闭
	n := 0
	for range src.Ticks() {
		n++
	}
	if n > 1 {
		t.Fatalf("取消后仍输出 %d 条价格", n)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.txt")
	content := "# demo prices\n100\n\n 95.5 \n# comment\n110\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src := NewFileSource(path, "DEMO", 10, zap.NewNop())
	ticks, err := collect(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float64{100, 95.5, 110}
	if len(ticks) != len(want) {
		t.Fatalf("len(ticks)=%d, want %d", len(ticks), len(want))
	}
	for i := range want {
		if ticks[i].Price != want[i] || ticks[i].Source != model.SourceFile {
			t.Fatalf("ticks[%d]=%+v, want price %v", i, ticks[i], want[i])
		}
	}
}

func TestFileSource_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.txt")
	if err := os.WriteFile(path, []byte("100\nabc\n101\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ticks, err := collect(t, NewFileSource(path, "DEMO", 10, zap.NewNop()))
	if err == nil {
		t.Fatal("无法解析的行应返回错误")
	}
	if !strings.Contains(err.Error(), "prices.txt:2") {
		t.Fatalf("err=%v, 应包含行号", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("出错前应输出 1 条价格，实际 %d", len(ticks))
	}
}

func TestFileSource_NaNRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.txt")
	if err := os.WriteFile(path, []byte("NaN\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := collect(t, NewFileSource(path, "DEMO", 10, zap.NewNop())); err == nil {
		t.Fatal("NaN 价格应返回错误")
	}
}

func TestFileSource_Missing(t *testing.T) {
	_, err := collect(t, NewFileSource("/nonexistent/prices.txt", "DEMO", 10, zap.NewNop()))
	if err == nil {
		t.Fatal("文件不存在应返回错误")
	}
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()

	cfg := config.Demo()
	src, err := New(&cfg.Feed, 10, logger)
	if err != nil {
		t.Fatalf("New(static): %v", err)
	}
	if _, ok := src.(*StaticSource); !ok {
		t.Fatalf("static 来源类型为 %T", src)
	}

	cfg.Feed.Source = config.FeedFile
	cfg.Feed.File = "prices.txt"
	if src, _ = New(&cfg.Feed, 10, logger); src == nil {
		t.Fatal("New(file) 返回 nil")
	}
	if _, ok := src.(*FileSource); !ok {
		t.Fatalf("file 来源类型为 %T", src)
	}

	cfg.Feed.Source = config.FeedBinance
	cfg.Feed.Symbol = "BTCUSDT"
	if src, _ = New(&cfg.Feed, 10, logger); src == nil {
		t.Fatal("New(binance) 返回 nil")
	}
	if _, ok := src.(*binance.Client); !ok {
		t.Fatalf("binance 来源类型为 %T", src)
	}

	cfg.Feed.Source = "kafka"
	if _, err := New(&cfg.Feed, 10, logger); err == nil {
		t.Fatal("未知来源应返回错误")
	}
}
