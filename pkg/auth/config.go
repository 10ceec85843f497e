package auth

import "time"

// Config holds token settings loaded from the environment.
type Config struct {
	SigningKey string        `env:"AUTH_SIGNING_KEY,required"`
	Issuer     string        `env:"AUTH_ISSUER" envDefault:"storefront"`
	TokenTTL   time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"1h"`
	SystemTTL  time.Duration `env:"AUTH_SYSTEM_TOKEN_TTL" envDefault:"15m"`
}
