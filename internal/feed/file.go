package feed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"mean-reversion-signal/internal/core/model"
	"mean-reversion-signal/internal/util/fastparse"
	"mean-reversion-signal/internal/util/timeutil"
)

// FileSource 从文本文件读取价格
// 每行一个价格；空行与 '#' 开头的注释行跳过。
type FileSource struct {
	path   string
	symbol string
	logger *zap.Logger
	ch     chan *model.Tick
}

// NewFileSource 创建文件价格来源
func NewFileSource(path, symbol string, bufferSize int, logger *zap.Logger) *FileSource {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &FileSource{
		path:   path,
		symbol: symbol,
		logger: logger.Named("feed.file"),
		ch:     make(chan *model.Tick, bufferSize),
	}
}

// Run 逐行读取并输出价格
// 返回: 无法解析的行会以 "文件:行号" 的形式报错并停止
func (s *FileSource) Run(ctx context.Context) error {
	defer close(s.ch)

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("打开价格文件失败: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo, count := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		price, err := fastparse.ParseFinite(line)
		if err != nil {
			return fmt.Errorf("%s:%d: 解析价格失败: %w", s.path, lineNo, err)
		}

		tick := &model.Tick{
			Source:          model.SourceFile,
			Symbol:          s.symbol,
			Price:           price,
			ArrivedAtUnixNs: timeutil.NowNano(),
		}
		if err := emit(ctx, s.ch, tick); err != nil {
			return err
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("读取价格文件失败: %w", err)
	}

	s.logger.Debug("价格文件读取完成", zap.String("path", s.path), zap.Int("prices", count))
	return nil
}

// Ticks 价格输出通道
func (s *FileSource) Ticks() <-chan *model.Tick {
	return s.ch
}
