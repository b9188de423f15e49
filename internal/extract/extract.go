// internal/extract/extract.go
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/NoteQuiz/internal/utils"
)

// Strategy turns PDF bytes into text. An empty string with a nil error
// means the strategy had nothing to offer.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, pdf []byte) (string, error)
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Extract(ctx context.Context, pdf []byte) (string, error) {
	return s.Fn(ctx, pdf)
}

// Result is the text of the first strategy that produced any.
type Result struct {
	Text     string
	Strategy string
}

// Empty reports whether no strategy yielded text.
func (r Result) Empty() bool { return strings.TrimSpace(r.Text) == "" }

// Chain tries its strategies in order until one yields non-blank text.
type Chain struct {
	strategies []Strategy
	logger     *utils.Logger
	metrics    *utils.APIMetrics
}

// NewChain builds a chain; nil strategies are skipped.
func NewChain(logger *utils.Logger, metrics *utils.APIMetrics, strategies ...Strategy) *Chain {
	c := &Chain{logger: logger, metrics: metrics}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

// Names lists the strategies in the order they run.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract runs the chain. A failing or panicking strategy is logged and the
// next one is tried; only context cancellation is returned as an error.
func (c *Chain) Extract(ctx context.Context, pdf []byte) (Result, error) {
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		start := time.Now()
		text, err := runStrategy(ctx, s, pdf)
		if err != nil {
			c.logger.Warn("提取策略失败", map[string]interface{}{
				"strategy": s.Name(),
				"error":    err,
			})
			continue
		}

		text = Normalize(text)
		if strings.TrimSpace(text) == "" {
			c.logger.Debug("提取策略未得到文本", map[string]interface{}{"strategy": s.Name()})
			continue
		}

		if c.metrics != nil {
			c.metrics.RecordExtraction(s.Name(), len(text), time.Since(start))
		}
		return Result{Text: text, Strategy: s.Name()}, nil
	}
	return Result{}, ctx.Err()
}

func runStrategy(ctx context.Context, s Strategy, pdf []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", s.Name(), r)
		}
	}()
	return s.Extract(ctx, pdf)
}
