// Package binance 客户端测试（本地 WebSocket 服务）
package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
)

// newTestServer 启动本地 WebSocket 服务
// 每个连接先读取订阅请求，再由 handle 决定推送内容。
func newTestServer(t *testing.T, handle func(conn *websocket.Conn, connIndex int32, sub SubscribeRequest)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var conns int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeRequest
		if err := json.Unmarshal(data, &sub); err != nil {
			return
		}
		handle(conn, atomic.AddInt32(&conns, 1), sub)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) *config.WSConfig {
	return &config.WSConfig{
		URL:             "ws" + strings.TrimPrefix(srv.URL, "http"),
		PingIntervalMs:  50,
		ReadTimeoutMs:   2000,
		ReconnectBaseMs: 10,
		ReconnectMaxMs:  50,
	}
}

func trade(symbol, price string) []byte {
	return []byte(`{"e":"aggTrade","E":1700000000000,"s":"` + symbol + `","p":"` + price + `","q":"1"}`)
}

// waitTick 读取一条价格，超时失败
func waitTick(t *testing.T, ch <-chan *model.Tick) *model.Tick {
	t.Helper()
	select {
	case tick, ok := <-ch:
		if !ok {
			t.Fatal("价格通道已关闭")
		}
		return tick
	case <-time.After(5 * time.Second):
		t.Fatal("等待价格超时")
	}
	return nil
}

func TestClient_StreamsTrades(t *testing.T) {
	subCh := make(chan SubscribeRequest, 1)
	srv := newTestServer(t, func(conn *websocket.Conn, _ int32, sub SubscribeRequest) {
		subCh <- sub
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, trade("BTCUSDT", "100.5"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, trade("ETHUSDT", "2000"))
		_ = conn.WriteMessage(websocket.TextMessage, trade("BTCUSDT", "99.5"))
		// 保持连接直到客户端断开
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewClient(testConfig(srv), "BTCUSDT", 10, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	sub := <-subCh
	if sub.Method != "SUBSCRIBE" || len(sub.Params) != 1 || sub.Params[0] != "btcusdt@aggTrade" {
		t.Fatalf("订阅请求=%+v", sub)
	}

	first := waitTick(t, c.Ticks())
	second := waitTick(t, c.Ticks())
	if first.Price != 100.5 || second.Price != 99.5 {
		t.Fatalf("prices=%v,%v, want 100.5,99.5", first.Price, second.Price)
	}
	if first.Source != model.SourceBinance || first.ExchTsUnixMs != 1700000000000 {
		t.Fatalf("first=%+v", first)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("取消后 Run 未返回")
	}

	// Run 返回后通道关闭
	if _, ok := <-c.Ticks(); ok {
		t.Fatal("价格通道应已关闭")
	}

	m := c.Metrics()
	if m.TradeCount != 2 || m.ParseErrorCount != 1 {
		t.Fatalf("metrics=%+v, want 2 trades 1 parse error", m)
	}
}

func TestClient_Reconnect(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, connIndex int32, _ SubscribeRequest) {
		if connIndex == 1 {
			// 第一个连接推送一条后立即断开
			_ = conn.WriteMessage(websocket.TextMessage, trade("BTCUSDT", "101"))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, trade("BTCUSDT", "102"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewClient(testConfig(srv), "btcusdt", 10, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if tick := waitTick(t, c.Ticks()); tick.Price != 101 {
		t.Fatalf("first price=%v, want 101", tick.Price)
	}
	if tick := waitTick(t, c.Ticks()); tick.Price != 102 {
		t.Fatalf("second price=%v, want 102", tick.Price)
	}
	if c.Metrics().ReconnectCount < 1 {
		t.Fatalf("ReconnectCount=%d, want >= 1", c.Metrics().ReconnectCount)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close 后 Run 未返回")
	}
}

func TestClient_DialFailureStopsOnCancel(t *testing.T) {
	cfg := &config.WSConfig{
		URL:             "ws://127.0.0.1:1/ws",
		ReadTimeoutMs:   1000,
		ReconnectBaseMs: 10,
		ReconnectMaxMs:  20,
	}
	c := NewClient(cfg, "BTCUSDT", 1, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Metrics().ReconnectCount == 0 {
		t.Fatal("连接失败后应尝试重连")
	}
}
