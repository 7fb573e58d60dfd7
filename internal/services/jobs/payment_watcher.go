package jobs

import (
	"context"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/usecases/payment"
)

// PaymentWatcherJob периодический прогон цикла сверки платежей
type PaymentWatcherJob struct {
	matcher  *payment.Matcher
	interval time.Duration
	log      *slog.Logger
}

// NewPaymentWatcherJob создаёт джобу сверки платежей
func NewPaymentWatcherJob(matcher *payment.Matcher, interval time.Duration, log *slog.Logger) *PaymentWatcherJob {
	return &PaymentWatcherJob{
		matcher:  matcher,
		interval: interval,
		log:      log,
	}
}

func (j *PaymentWatcherJob) Name() string {
	return "payment_watcher"
}

// NextRun следующий запуск через фиксированный интервал
func (j *PaymentWatcherJob) NextRun(now time.Time) time.Time {
	return now.Add(j.interval)
}

// Run один цикл сверки
func (j *PaymentWatcherJob) Run(ctx context.Context) error {
	return j.matcher.RunCycle(ctx)
}
