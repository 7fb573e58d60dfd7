package coingecko

type Config struct {
	BaseURL       string `envconfig:"BASE_URL" default:"https://api.coingecko.com/api/v3"`
	ApiKey        string `envconfig:"API_KEY"`
	Timeout       int    `envconfig:"TIMEOUT" default:"10"`         // в секундах
	CacheTTL      int    `envconfig:"CACHE_TTL" default:"90"`       // в минутах
	FallbackPrice string `envconfig:"FALLBACK_PRICE" default:"135"` // EUR за SOL, когда API и кэш недоступны
}
