package retry

import (
	"context"
	"time"
)

// Config параметры ограниченного retry с экспоненциальным backoff
type Config struct {
	MaxAttempts int           // всего попыток, включая первую
	BaseDelay   time.Duration // задержка перед второй попыткой; дальше удваивается
}

// DefaultConfig 3 попытки с базовой задержкой в секунду:
// достаточно для переживания rate-limit RPC-узла, не блокируя цикл надолго.
var DefaultConfig = Config{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
}

// Do выполняет fn, повторяя при ошибках, для которых retryable вернул true.
// Задержки: base, base*2, base*4, ... Контекст прерывает ожидание между попытками.
// Возвращается последняя ошибка fn.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return lastErr
}
