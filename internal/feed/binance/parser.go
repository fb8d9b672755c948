package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/util/fastparse"
	"mean-reversion-signal/internal/util/timeutil"
)

// Parser Binance aggTrade 消息解析器
type Parser struct {
	// symbol 订阅的交易对（大写），用于过滤其他推送
	symbol string
}

// NewParser 创建解析器
func NewParser(symbol string) *Parser {
	return &Parser{symbol: strings.ToUpper(symbol)}
}

// Parse 解析 Binance WebSocket 消息为 Tick
// 返回: 非成交消息（如订阅响应）或其他交易对返回 (nil, nil)
func (p *Parser) Parse(data []byte) (*model.Tick, error) {
	arrivedAt := timeutil.NowNano()

	var msg AggTrade
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}
	if msg.EventType != "aggTrade" {
		return nil, nil
	}

	symbol := strings.ToUpper(msg.Symbol)
	if symbol != p.symbol {
		return nil, nil
	}

	price, err := fastparse.ParseFinite(msg.Price)
	if err != nil {
		return nil, fmt.Errorf("解析 Binance 成交价失败: %w", err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("成交价必须为正数: %s", msg.Price)
	}

	return &model.Tick{
		Source:          model.SourceBinance,
		Symbol:          symbol,
		Price:           price,
		ExchTsUnixMs:    msg.EventTimeMs,
		ArrivedAtUnixNs: arrivedAt,
	}, nil
}
