package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Redis  Redis  `envPrefix:"REDIS_"`
	Card   Card   `envPrefix:"CARD_"`
	Wallet Wallet `envPrefix:"WALLET_"`
	SMTP   SMTP   `envPrefix:"SMTP_"`
	Admin  Admin  `envPrefix:"ADMIN_"`
}

// Card is the card processor API: secret-key authenticated, confirmed
// asynchronously by signed webhook delivery.
type Card struct {
	BaseApiURL    string `env:"BASE_API_URL"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// Wallet is the redirect-wallet processor API: oauth client-credentials
// authenticated, captured explicitly after payer approval.
type Wallet struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`

	// PendingTTL bounds how long an unconfirmed wallet checkout stays
	// claimable; confirmations arriving later are treated as orphans.
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"24h"`
}

type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

type Admin struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
