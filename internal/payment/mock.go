package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const txnAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MockConfig configures the simulated processor.
type MockConfig struct {
	Policy      Policy
	SuccessRate float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultMockConfig returns an always-approve processor with a short delay.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		Policy:      PolicyAlways,
		SuccessRate: 0.9,
		MinDelay:    100 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

// MockAuthorizer simulates a payment gateway with no external verification.
type MockAuthorizer struct {
	cfg    MockConfig
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockAuthorizer creates a simulated processor.
func NewMockAuthorizer(cfg MockConfig, logger zerolog.Logger) *MockAuthorizer {
	return NewMockAuthorizerWithSource(cfg, rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15), logger)
}

// NewMockAuthorizerWithSource creates a simulated processor with a fixed
// random source, for reproducible outcomes.
func NewMockAuthorizerWithSource(cfg MockConfig, src rand.Source, logger zerolog.Logger) *MockAuthorizer {
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &MockAuthorizer{
		cfg:    cfg,
		logger: logger.With().Str("component", "mock_payment").Logger(),
		now:    time.Now,
		rng:    rand.New(src),
	}
}

// Authorize waits for the simulated latency, then approves or declines
// according to the configured policy.
func (m *MockAuthorizer) Authorize(ctx context.Context, req Request) (*Result, error) {
	timer := time.NewTimer(m.delay())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		m.logger.Warn().
			Str("order_number", req.OrderNumber).
			Err(ctx.Err()).
			Msg("Payment authorisation abandoned")
		return nil, ctx.Err()
	case <-timer.C:
	}

	now := m.now()
	result := &Result{
		Success:       m.approve(),
		TransactionID: fmt.Sprintf("txn_%d_%s", now.UnixMilli(), m.suffix(9)),
		ProcessedAt:   now,
	}
	if result.Success {
		result.Message = "Payment processed successfully"
	} else {
		result.Message = "Payment declined"
	}

	m.logger.Info().
		Str("order_number", req.OrderNumber).
		Str("method", req.Method).
		Str("amount", req.Amount.StringFixed(2)).
		Bool("success", result.Success).
		Str("transaction_id", result.TransactionID).
		Msg("Payment processed")

	return result, nil
}

func (m *MockAuthorizer) delay() time.Duration {
	spread := m.cfg.MaxDelay - m.cfg.MinDelay
	if spread <= 0 {
		return m.cfg.MinDelay
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.MinDelay + time.Duration(m.rng.Int64N(int64(spread)+1))
}

func (m *MockAuthorizer) approve() bool {
	switch m.cfg.Policy {
	case PolicyNever:
		return false
	case PolicyRandom:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.rng.Float64() < m.cfg.SuccessRate
	default:
		return true
	}
}

func (m *MockAuthorizer) suffix(n int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = txnAlphabet[m.rng.IntN(len(txnAlphabet))]
	}
	return string(b)
}
