package solana

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type Config struct {
	RPCURL           string `envconfig:"RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	CollectionSecret string `envconfig:"COLLECTION_SECRET" required:"true"` // base58 приватный ключ общего кошелька
	ConfirmTimeout   int    `envconfig:"CONFIRM_TIMEOUT" default:"60"`      // в секундах
}

// NewClient создаёт RPC-клиент Solana
func (c *Config) NewClient() *rpc.Client {
	return rpc.New(c.RPCURL)
}

// CollectionKey парсит приватный ключ общего кошелька.
// Поддерживается только base58 формат.
func (c *Config) CollectionKey() (solanago.PrivateKey, error) {
	key, err := solanago.PrivateKeyFromBase58(c.CollectionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection secret as base58: %w", err)
	}
	return key, nil
}
