package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/IBM/sarama"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// Producer публикует события платёжного контура в Kafka.
// Реализует service.IEventProducer.
type Producer struct {
	producer sarama.SyncProducer
	cfg      *Config
	log      *slog.Logger
}

// NewProducer создаёт новый Kafka producer
func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	// Настройка безопасности (если указано)
	if cfg.SecurityProtocol == "SASL_SSL" || cfg.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		if cfg.SASLMechanism == "SCRAM-SHA-256" {
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword
		if cfg.SecurityProtocol == "SASL_SSL" {
			config.Net.TLS.Enable = true
		}
	}

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return &Producer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}, nil
}

// purchaseConfirmedEvent событие подтверждённой оплаты
type purchaseConfirmedEvent struct {
	PaymentID      string    `json:"payment_id"`
	UserID         int64     `json:"user_id"`
	ExpectedAmount string    `json:"expected_amount_sol"`
	Destination    string    `json:"destination"`
	TxSignature    string    `json:"tx_signature"`
	Items          int       `json:"items"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

// PublishPurchaseConfirmed публикует событие подтверждённой оплаты
func (p *Producer) PublishPurchaseConfirmed(ctx context.Context, intent *domain.PaymentIntent, signature string) error {
	event := purchaseConfirmedEvent{
		PaymentID:      intent.PaymentID,
		UserID:         intent.UserID,
		ExpectedAmount: intent.ExpectedAmount.String(),
		Destination:    string(intent.Destination),
		TxSignature:    signature,
		Items:          len(intent.Basket),
		ConfirmedAt:    time.Now().UTC(),
	}

	return p.send(intent.PaymentID, "purchase_confirmed", event)
}

// forwardCompletedEvent событие завершённого сплит-форвардинга
type forwardCompletedEvent struct {
	PaymentID        string    `json:"payment_id"`
	SourceSignature  string    `json:"source_signature"`
	WalletAAmount    string    `json:"wallet_a_amount_sol"`
	WalletASignature *string   `json:"wallet_a_signature"`
	WalletBAmount    string    `json:"wallet_b_amount_sol"`
	WalletBSignature *string   `json:"wallet_b_signature"`
	Success          bool      `json:"success"`
	ForwardedAt      time.Time `json:"forwarded_at"`
}

// PublishForwardCompleted публикует событие завершённого форвардинга
func (p *Producer) PublishForwardCompleted(ctx context.Context, entry *domain.ForwardingLogEntry) error {
	event := forwardCompletedEvent{
		PaymentID:        entry.PaymentID,
		SourceSignature:  entry.SourceSignature,
		WalletAAmount:    entry.WalletAAmount.String(),
		WalletASignature: entry.WalletASignature,
		WalletBAmount:    entry.WalletBAmount.String(),
		WalletBSignature: entry.WalletBSignature,
		Success:          entry.Success,
		ForwardedAt:      entry.ForwardedAt,
	}

	return p.send(entry.PaymentID, "forward_completed", event)
}

// send сериализует событие и отправляет его в топик
func (p *Producer) send(key, eventType string, event interface{}) error {
	valueBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.cfg.Topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(eventType),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Debug("kafka send failed",
			"error", err,
			"topic", p.cfg.Topic,
			"key", key,
			"event_type", eventType,
		)
		return fmt.Errorf("kafka send failed [topic=%s, key=%s]: %w",
			p.cfg.Topic, key, err)
	}

	p.log.Debug("event sent to kafka",
		"topic", p.cfg.Topic,
		"partition", partition,
		"offset", offset,
		"key", key,
		"event_type", eventType,
	)

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed")
	return nil
}
