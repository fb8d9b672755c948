// Package binance 实现 Binance 实时成交价来源。
// 连接地址: wss://fstream.binance.com/ws
// 订阅频道: <symbol>@aggTrade
// 心跳机制: 协议层 ping/pong
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mean-reversion-signal/internal/config"
	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/util/backoff"
	"mean-reversion-signal/internal/util/timeutil"
)

// Client Binance WebSocket 成交价客户端
type Client struct {
	// cfg WebSocket 配置
	cfg *config.WSConfig
	// symbol 订阅的交易对
	symbol string
	// logger 日志记录器
	logger *zap.Logger
	// parser 消息解析器
	parser *Parser

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁（同时保护写操作）
	connMu sync.Mutex

	// tickCh 价格输出通道
	tickCh chan *model.Tick

	// metrics 连接指标
	metrics ConnectionMetrics
	// metricsMu 指标锁
	metricsMu sync.RWMutex

	// backoff 重连退避
	backoff *backoff.Backoff
	// closed 是否已关闭
	closed int32

	// parseErrSampleCount 解析错误计数（用于采样日志）
	parseErrSampleCount uint64
	// lastParseErrLogNs 上次解析错误日志时间（纳秒）
	lastParseErrLogNs int64
}

// NewClient 创建 Binance 成交价客户端
// 参数 cfg: WebSocket 配置
// 参数 symbol: 交易对，如 BTCUSDT
// 参数 bufferSize: 价格通道容量
func NewClient(cfg *config.WSConfig, symbol string, bufferSize int, logger *zap.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Client{
		cfg:     cfg,
		symbol:  strings.ToUpper(symbol),
		logger:  logger.Named("feed.binance"),
		parser:  NewParser(symbol),
		tickCh:  make(chan *model.Tick, bufferSize),
		backoff: backoff.New(timeutil.Millis(cfg.ReconnectBaseMs), timeutil.Millis(cfg.ReconnectMaxMs), 0.2),
	}
}

// Connect 建立 WebSocket 连接
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", "mean-reversion-signal/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("连接 Binance WebSocket 失败: %w", err)
	}

	readTimeout := timeutil.Millis(c.cfg.ReadTimeoutMs)
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.logger.Info("Binance WebSocket 连接成功", zap.String("url", c.cfg.URL))
	return nil
}

// Subscribe 订阅 <symbol>@aggTrade 成交流
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	req := SubscribeRequest{
		Method: "SUBSCRIBE",
		Params: []string{fmt.Sprintf("%s@aggTrade", strings.ToLower(c.symbol))},
		ID:     1,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅请求失败: %w", err)
	}

	c.logger.Info("Binance 订阅请求已发送", zap.String("symbol", c.symbol))
	return nil
}

// Run 启动主循环：连接、订阅、读取，断线后按退避重连
// ctx 取消或 Close 后返回 nil，并关闭价格通道。
func (c *Client) Run(ctx context.Context) error {
	defer close(c.tickCh)
	defer c.closeConn()

	// 阻塞中的 ReadMessage 不感知 ctx，取消时主动断开连接
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.closeConn()
		case <-stop:
		}
	}()
	go c.pingLoop(ctx)

	first := true
	for {
		if ctx.Err() != nil || atomic.LoadInt32(&c.closed) == 1 {
			return nil
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !first {
				c.incrementReconnectCount()
				if !c.wait(ctx) {
					return nil
				}
			}
			first = false
			if err := c.Connect(ctx); err != nil {
				c.logger.Warn("Binance 连接失败", zap.Error(err))
				continue
			}
			if err := c.Subscribe(); err != nil {
				c.logger.Warn("Binance 订阅失败", zap.Error(err))
				c.closeConn()
				continue
			}
			c.backoff.Reset()
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && atomic.LoadInt32(&c.closed) == 0 {
				c.logger.Warn("读取 Binance 消息失败", zap.Error(err))
			}
			c.closeConn()
			continue
		}

		if readTimeout := timeutil.Millis(c.cfg.ReadTimeoutMs); readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		tick, err := c.parser.Parse(data)
		if err != nil {
			c.incrementParseErrorCount()
			c.maybeLogParseError(err, data)
			continue
		}
		if tick == nil {
			continue
		}

		// 价格序列有状态，通道满时阻塞而不是丢弃，除非已取消
		select {
		case c.tickCh <- tick:
			c.metricsMu.Lock()
			c.metrics.TradeCount++
			c.metricsMu.Unlock()
		case <-ctx.Done():
			c.metricsMu.Lock()
			c.metrics.DroppedCount++
			c.metricsMu.Unlock()
			return nil
		}
	}
}

// wait 按退避等待，ctx 取消时返回 false
func (c *Client) wait(ctx context.Context) bool {
	delay := c.backoff.Next()
	c.logger.Info("Binance 准备重连", zap.Duration("delay", delay), zap.Int("attempt", c.backoff.Attempt()))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	intervalMs := c.cfg.PingIntervalMs
	if intervalMs <= 0 {
		intervalMs = 15000
	}

	ticker := time.NewTicker(timeutil.Millis(intervalMs))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			c.connMu.Lock()
			conn := c.conn
			if conn == nil {
				c.connMu.Unlock()
				continue
			}
			deadline := time.Now().Add(5 * time.Second)
			err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline)
			c.connMu.Unlock()
			if err != nil {
				c.logger.Warn("发送 Binance ping 失败", zap.Error(err))
			}
		}
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭客户端，Run 随后返回
func (c *Client) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.closeConn()
		c.logger.Info("Binance 客户端已关闭")
	}
	return nil
}

// Ticks 价格输出通道
func (c *Client) Ticks() <-chan *model.Tick {
	return c.tickCh
}

// Metrics 获取连接指标
func (c *Client) Metrics() ConnectionMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

func (c *Client) incrementReconnectCount() {
	c.metricsMu.Lock()
	c.metrics.ReconnectCount++
	c.metricsMu.Unlock()
}

func (c *Client) incrementParseErrorCount() {
	c.metricsMu.Lock()
	c.metrics.ParseErrorCount++
	c.metricsMu.Unlock()
}

// maybeLogParseError 采样记录解析错误原始消息
// 采样策略：首条必记，之后每 100 次记录 1 条，且至少间隔 1 分钟。
func (c *Client) maybeLogParseError(err error, data []byte) {
	count := atomic.AddUint64(&c.parseErrSampleCount, 1)
	if count != 1 && count%100 != 0 {
		return
	}

	nowNs := timeutil.NowNano()
	last := atomic.LoadInt64(&c.lastParseErrLogNs)
	if last > 0 && nowNs-last < int64(time.Minute) {
		return
	}
	atomic.StoreInt64(&c.lastParseErrLogNs, nowNs)

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn("解析 Binance 消息失败（采样）", zap.Error(err), zap.ByteString("data", sample))
}
