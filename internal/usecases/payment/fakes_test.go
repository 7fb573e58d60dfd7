package payment

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	return &Config{
		WalletAAddress:    "WalletAAddr11111111111111111111111111111111",
		WalletBAddress:    "WalletBAddr11111111111111111111111111111111",
		CollectionAddress: "Collection111111111111111111111111111111111",

		MinIntentSOL:   decimal.RequireFromString("0.01"),
		Markup:         decimal.RequireFromString("1.01"),
		SplitRatioA:    decimal.RequireFromString("0.2"),
		BalanceReserve: decimal.RequireFromString("0.002"),
		FeeBuffer:      decimal.RequireFromString("0.00002"),
		DustThreshold:  decimal.RequireFromString("0.000001"),
		MatchTolerance: decimal.RequireFromString("0.001"),

		IntentTTLMinutes:      20,
		StallMinutes:          2,
		TransferCutoffMinutes: 30,
		ScanLimit:             20,
		PollIntervalSeconds:   30,
	}
}

// fakeIntentRepo хранит интенты в памяти, переходы через CanTransition
type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
	// подписи, занятые через ConfirmProcessed
	signatures map[string]string

	createErr    error
	deleted      []string
	revertCalled bool
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{
		intents:    make(map[string]*domain.PaymentIntent),
		signatures: make(map[string]string),
	}
}

func (r *fakeIntentRepo) Create(_ context.Context, intent *domain.PaymentIntent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intent
	r.intents[intent.PaymentID] = &cp
	return nil
}

func (r *fakeIntentRepo) GetByID(_ context.Context, paymentID string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[paymentID]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

func (r *fakeIntentRepo) ListByStatus(_ context.Context, status domain.IntentStatus) ([]domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PaymentIntent
	for _, intent := range r.intents {
		if intent.Status == status {
			out = append(out, *intent)
		}
	}
	return out, nil
}

func (r *fakeIntentRepo) TransitionStatus(_ context.Context, paymentID string, from, to domain.IntentStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[paymentID]
	if !ok || intent.Status != from {
		return false, nil
	}
	intent.Status = to
	return true, nil
}

func (r *fakeIntentRepo) ConfirmProcessed(_ context.Context, paymentID, signature string, _ decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.signatures[signature]; taken {
		return false, nil
	}
	intent, ok := r.intents[paymentID]
	if !ok || intent.Status != domain.IntentStatusProcessing {
		return false, fmt.Errorf("intent %s is not processing", paymentID)
	}
	r.signatures[signature] = paymentID
	intent.Status = domain.IntentStatusConfirmed
	intent.TxSignature = &signature
	return true, nil
}

func (r *fakeIntentRepo) RevertStale(_ context.Context, _ time.Time) (int64, error) {
	r.revertCalled = true
	return 0, nil
}

func (r *fakeIntentRepo) Delete(_ context.Context, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.intents, paymentID)
	r.deleted = append(r.deleted, paymentID)
	return nil
}

// fakeInventoryRepo настраиваемый склад
type fakeInventoryRepo struct {
	finalizeErr    error
	finalizeResult *repository.FinalizeResult
	media          []repository.ProductMedia
	mediaErr       error

	finalized  int
	unreserved []domain.BasketSnapshot
	deletedIDs [][]int64
}

func (r *fakeInventoryRepo) Finalize(_ context.Context, _ int64, basket domain.BasketSnapshot, _ *string) (*repository.FinalizeResult, error) {
	r.finalized++
	if r.finalizeErr != nil {
		return nil, r.finalizeErr
	}
	if r.finalizeResult != nil {
		return r.finalizeResult, nil
	}
	return &repository.FinalizeResult{
		ProductIDs: basket.ProductIDs(),
		TotalPaid:  decimal.RequireFromString("100"),
	}, nil
}

func (r *fakeInventoryRepo) Unreserve(_ context.Context, basket domain.BasketSnapshot) error {
	r.unreserved = append(r.unreserved, basket)
	return nil
}

func (r *fakeInventoryRepo) ProductMedia(_ context.Context, _ []int64) ([]repository.ProductMedia, error) {
	if r.mediaErr != nil {
		return nil, r.mediaErr
	}
	return r.media, nil
}

func (r *fakeInventoryRepo) DeleteProducts(_ context.Context, ids []int64) error {
	r.deletedIDs = append(r.deletedIDs, ids)
	return nil
}

// fakeProcessedRepo журнал подписей в памяти
type fakeProcessedRepo struct {
	known map[string]bool
}

func (r *fakeProcessedRepo) Exists(_ context.Context, signature string) (bool, error) {
	return r.known[signature], nil
}

func (r *fakeProcessedRepo) GetBySignature(_ context.Context, _ string) (*domain.ProcessedTransaction, error) {
	return nil, nil
}

// fakeScanner отдаёт заранее заданные переводы по кошельку
type fakeScanner struct {
	transfers map[string][]domain.Transfer
	scanErr   error
}

func (s *fakeScanner) RecentIncoming(_ context.Context, wallet string, _ int) ([]domain.Transfer, error) {
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.transfers[wallet], nil
}

func (s *fakeScanner) Verify(_ context.Context, _ string) (*domain.TransferConfirmation, error) {
	return nil, nil
}

type sentTransfer struct {
	To     string
	Amount decimal.Decimal
}

// fakeSender записывает исходящие переводы, умеет падать по адресу
type fakeSender struct {
	balance  decimal.Decimal
	sent     []sentTransfer
	failFor  map[string]error
	sigSeq   int
	balances []decimal.Decimal // если задано, Balance отдаёт по очереди
}

func (s *fakeSender) Balance(_ context.Context, _ string) (decimal.Decimal, error) {
	if len(s.balances) > 0 {
		b := s.balances[0]
		if len(s.balances) > 1 {
			s.balances = s.balances[1:]
		}
		return b, nil
	}
	return s.balance, nil
}

func (s *fakeSender) Send(_ context.Context, to string, amount decimal.Decimal) (string, error) {
	if err := s.failFor[to]; err != nil {
		return "", err
	}
	s.sent = append(s.sent, sentTransfer{To: to, Amount: amount})
	s.sigSeq++
	return fmt.Sprintf("sig-%d", s.sigSeq), nil
}

// fakeForwardLog журнал форвардинга в памяти
type fakeForwardLog struct {
	entries []domain.ForwardingLogEntry
}

func (l *fakeForwardLog) Append(_ context.Context, entry *domain.ForwardingLogEntry) error {
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *fakeForwardLog) ListByPaymentID(_ context.Context, paymentID string) ([]domain.ForwardingLogEntry, error) {
	var out []domain.ForwardingLogEntry
	for _, e := range l.entries {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type notification struct {
	UserID    int64
	Message   string
	MediaType string
}

// fakeNotifier записывает уведомления, умеет падать на медиа
type fakeNotifier struct {
	sent     []notification
	mediaErr error
	textErr  error
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, message string) error {
	if n.textErr != nil {
		return n.textErr
	}
	n.sent = append(n.sent, notification{UserID: userID, Message: message})
	return nil
}

func (n *fakeNotifier) NotifyMedia(_ context.Context, userID int64, mediaType string, _ []byte, caption string) error {
	if n.mediaErr != nil {
		return n.mediaErr
	}
	n.sent = append(n.sent, notification{UserID: userID, Message: caption, MediaType: mediaType})
	return nil
}

// fakeAlerter копит алерты
type fakeAlerter struct {
	alerts []string
}

func (a *fakeAlerter) SendAlert(_ context.Context, message string) error {
	a.alerts = append(a.alerts, message)
	return nil
}

// fakeEvents копит опубликованные события
type fakeEvents struct {
	purchases []string
	forwards  []string
}

func (e *fakeEvents) PublishPurchaseConfirmed(_ context.Context, intent *domain.PaymentIntent, _ string) error {
	e.purchases = append(e.purchases, intent.PaymentID)
	return nil
}

func (e *fakeEvents) PublishForwardCompleted(_ context.Context, entry *domain.ForwardingLogEntry) error {
	e.forwards = append(e.forwards, entry.PaymentID)
	return nil
}

// fakeS3 объектное хранилище в памяти
type fakeS3 struct {
	files map[string][]byte
}

func (s *fakeS3) GetFile(_ context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", path)
	}
	return data, nil
}

func (s *fakeS3) ListFiles(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

// fakeOracle фиксированный курс
type fakeOracle struct {
	price decimal.Decimal
}

func (o *fakeOracle) GetPrice(_ context.Context) decimal.Decimal {
	return o.price
}
