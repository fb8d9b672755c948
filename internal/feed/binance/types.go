package binance

// SubscribeRequest Binance WebSocket 订阅请求
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "btcusdt@aggTrade"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// AggTrade Binance 归集成交推送（aggTrade）
// 字段映射：
// - e: 事件类型（aggTrade）
// - E: 事件时间（毫秒） -> Tick.ExchTsUnixMs
// - s: Symbol（如 BTCUSDT）
// - p: 成交价（字符串） -> Tick.Price
// - q: 成交量（字符串）
type AggTrade struct {
	// EventType 事件类型: aggTrade
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// Price 成交价
	Price string `json:"p"`
	// Qty 成交量
	Qty string `json:"q"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64 `json:"reconnect_count"`
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64 `json:"parse_error_count"`
	// TradeCount 已输出成交数
	TradeCount int64 `json:"trade_count"`
	// DroppedCount 取消时未能投递的成交数
	DroppedCount int64 `json:"dropped_count"`
}
