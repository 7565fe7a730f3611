package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/errs"
	nlog "github.com/yeisme/docuvault/pkg/log"
)

// TextExtractor 文本提取协作方接口（OCR 等实现在进程外，这里只定义边界）.
// 提不出文本返回错误；入库流程对该错误做降级处理，不阻塞文档落库.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PlainTextExtractor 内置提取器，只处理文本类 MIME；其余类型交给外部协作方.
type PlainTextExtractor struct{}

// ExtractText 对文本类内容直接解码.
func (PlainTextExtractor) ExtractText(_ context.Context, data []byte, mimeType string) (string, error) {
	switch mimeType {
	case "text/plain", "text/csv":
		if !utf8.Valid(data) {
			return "", errs.New(errs.KindExtraction, "content is not valid utf-8")
		}

		return string(data), nil
	default:
		return "", errs.New(errs.KindExtraction, "unsupported mime type for builtin extraction: %s", mimeType)
	}
}

// breakerExtractor 用 gobreaker 包住外部提取协作方，打开态直接拒绝.
type breakerExtractor struct {
	inner TextExtractor
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerExtractor 按配置给提取器加熔断；未启用时原样返回.
func NewBreakerExtractor(inner TextExtractor, cfg configs.CircuitBreakerConfig) TextExtractor {
	if !cfg.Enabled || inner == nil {
		return inner
	}

	settings := gobreaker.Settings{
		Name:        "text-extractor",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.Requests
			if total < cfg.MinRequests {
				return false
			}

			failureRate := float64(counts.TotalFailures) / float64(total)

			return failureRate >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nlog.Logger().Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("text extractor breaker state changed")
		},
	}

	return &breakerExtractor{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.ExtractText(ctx, data, mimeType)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", errs.Wrap(errs.KindExtraction, err, "text extraction rejected by circuit breaker")
		}

		return "", errs.Wrap(errs.KindExtraction, err, "text extraction failed")
	}

	text, _ := res.(string)

	return text, nil
}
