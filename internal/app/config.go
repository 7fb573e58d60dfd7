package app

import (
	server "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http"
	alerterAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/alerter"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/coingecko"
	kafkaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/kafka"
	solanaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/solana"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/s3"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/shop-bot/internal/usecases/payment"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Postgres  *pg.Config             `envconfig:"POSTGRES"`
	Redis     *redisAdapter.Config   `envconfig:"REDIS"`
	S3        *s3.Config             `envconfig:"S3"`
	Log       *logger.Config         `envconfig:"LOG"`
	Server    *server.Config         `envconfig:"APISERVER"`
	Telegram  *telegram.Config       `envconfig:"TELEGRAM"`
	Solana    *solanaAdapter.Config  `envconfig:"SOLANA"`
	CoinGecko *coingecko.Config      `envconfig:"COINGECKO"`
	Kafka     *kafkaAdapter.Config   `envconfig:"KAFKA"`
	Alerter   *alerterAdapter.Config `envconfig:"ALERTER"`
	Payment   *payment.Config        `envconfig:"PAYMENT"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
