package service

import (
	"context"
	"testing"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/errs"
)

func TestPlainTextExtractor(t *testing.T) {
	ctx := context.Background()

	var ex PlainTextExtractor

	text, err := ex.ExtractText(ctx, []byte("請求書 本文"), "text/plain")
	if err != nil || text != "請求書 本文" {
		t.Errorf("got %q, %v", text, err)
	}

	if _, err := ex.ExtractText(ctx, []byte{0x25, 0x50}, "application/pdf"); !errs.Is(err, errs.KindExtraction) {
		t.Errorf("unsupported mime should fail extraction, got %v", err)
	}

	if _, err := ex.ExtractText(ctx, []byte{0xff, 0xfe}, "text/plain"); !errs.Is(err, errs.KindExtraction) {
		t.Errorf("invalid utf-8 should fail extraction, got %v", err)
	}
}

type failingExtractor struct{ calls int }

func (f *failingExtractor) ExtractText(context.Context, []byte, string) (string, error) {
	f.calls++

	return "", errs.New(errs.KindExtraction, "collaborator down")
}

func TestBreakerExtractorOpens(t *testing.T) {
	inner := &failingExtractor{}
	ex := NewBreakerExtractor(inner, configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       3,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	})

	ctx := context.Background()

	for range 10 {
		_, err := ex.ExtractText(ctx, []byte("x"), "application/pdf")
		if !errs.Is(err, errs.KindExtraction) {
			t.Fatalf("expected extraction error, got %v", err)
		}
	}

	// 熔断打开后不再打到内部实现
	if inner.calls >= 10 {
		t.Errorf("breaker never opened, inner called %d times", inner.calls)
	}
}

func TestBreakerExtractorDisabledPassthrough(t *testing.T) {
	inner := &failingExtractor{}
	if got := NewBreakerExtractor(inner, configs.CircuitBreakerConfig{}); got != TextExtractor(inner) {
		t.Error("disabled breaker should return the inner extractor unchanged")
	}
}
