package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config параметры платёжного контура.
// Все пороги и коэффициенты собраны здесь: в коде не должно быть
// платёжных констант россыпью.
type Config struct {
	WalletAAddress    string `envconfig:"WALLET_A_ADDRESS" required:"true"`
	WalletBAddress    string `envconfig:"WALLET_B_ADDRESS" required:"true"`
	CollectionAddress string `envconfig:"COLLECTION_ADDRESS" required:"true"` // общий кошелёк сплита

	MinIntentSOL   decimal.Decimal `envconfig:"MIN_INTENT_SOL" default:"0.01"`
	Markup         decimal.Decimal `envconfig:"MARKUP" default:"1.01"`            // наценка на волатильность курса
	SplitRatioA    decimal.Decimal `envconfig:"SPLIT_RATIO_A" default:"0.2"`      // доля кошелька A в сплите
	BalanceReserve decimal.Decimal `envconfig:"BALANCE_RESERVE" default:"0.002"`  // несгораемый остаток общего кошелька
	FeeBuffer      decimal.Decimal `envconfig:"FEE_BUFFER" default:"0.00002"`     // запас на комиссию одного перевода
	DustThreshold  decimal.Decimal `envconfig:"DUST_THRESHOLD" default:"0.000001"`
	MatchTolerance decimal.Decimal `envconfig:"MATCH_TOLERANCE" default:"0.001"` // относительный допуск суммы, 0.1%

	IntentTTLMinutes      int `envconfig:"INTENT_TTL_MINUTES" default:"20"`
	StallMinutes          int `envconfig:"STALL_MINUTES" default:"2"`            // порог свипа processing/failed
	TransferCutoffMinutes int `envconfig:"TRANSFER_CUTOFF_MINUTES" default:"30"` // переводы старше создания интента минус этот срок не учитываются
	ScanLimit             int `envconfig:"SCAN_LIMIT" default:"20"`
	PollIntervalSeconds   int `envconfig:"POLL_INTERVAL_SECONDS" default:"30"`
}

// IntentTTL срок жизни интента
func (c *Config) IntentTTL() time.Duration {
	return time.Duration(c.IntentTTLMinutes) * time.Minute
}

// StallThreshold порог, после которого processing считается застрявшим
func (c *Config) StallThreshold() time.Duration {
	return time.Duration(c.StallMinutes) * time.Minute
}

// TransferCutoff насколько старые переводы ещё принимаются
func (c *Config) TransferCutoff() time.Duration {
	return time.Duration(c.TransferCutoffMinutes) * time.Minute
}

// PollInterval период цикла матчинга
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
