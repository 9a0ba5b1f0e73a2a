package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends and delivery modes accepted in configuration.
const (
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DeliverySMTP = "smtp"
	DeliverySNS  = "sns"
	DeliveryLog  = "log"

	AuthJWT    = "jwt"
	AuthGoogle = "google"

	EnvProduction = "production"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"3000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"dynamo"`
	OTPStore     string `env:"OTP_STORE"` // empty = same as StoreBackend

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	S3BucketName    string `env:"S3_BUCKET_NAME" envDefault:"campus-chat-files"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	AvatarMaxBytes  int64  `env:"AVATAR_MAX_BYTES" envDefault:"5242880"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"jwt"`
	AuthPublicKeyPath string `env:"AUTH_PUBLIC_KEY_PATH" envDefault:"./auth_public_keys.pem"`
	AuthIssuer        string `env:"AUTH_ISSUER"`
	AuthAudience      string `env:"AUTH_AUDIENCE"`
	GoogleClientID    string `env:"GOOGLE_CLIENT_ID"`

	OTPValidity    time.Duration `env:"OTP_VALIDITY" envDefault:"15m"`
	OTPHashCost    int           `env:"OTP_HASH_COST" envDefault:"10"`
	OTPMaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"` // verify calls accepted per issued code

	MailDelivery string `env:"MAIL_DELIVERY" envDefault:"smtp"`
	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SNSRegion    string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSTopicARN  string `env:"SNS_TOPIC_ARN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ChatAPIKey    string        `env:"CHAT_API_KEY"`
	ChatAPISecret string        `env:"CHAT_API_SECRET"`
	ChatTokenTTL  time.Duration `env:"CHAT_TOKEN_TTL" envDefault:"24h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","` // CORS allowed origins
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the peer address.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users       string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Usernames   string `env:"DYNAMO_TABLE_USERNAMES" envDefault:"usernames"`
	OTPRequests string `env:"DYNAMO_TABLE_OTP_REQUESTS" envDefault:"otp_requests"`
}

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EffectiveOTPStore returns the backend used for OTP records.
func (c *Config) EffectiveOTPStore() string {
	if c.OTPStore == "" {
		return c.StoreBackend
	}
	return c.OTPStore
}

// Validate checks cross-field requirements that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendDynamo, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDynamo, BackendMemory, c.StoreBackend))
	}
	switch c.EffectiveOTPStore() {
	case BackendDynamo, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when OTP_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported OTP_STORE %q", c.OTPStore))
	}
	switch c.MailDelivery {
	case DeliverySMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required when MAIL_DELIVERY=smtp"))
		}
	case DeliverySNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN is required when MAIL_DELIVERY=sns"))
		}
		// topic fan-out only reaches inboxes that already confirmed a subscription
		if c.AppEnv == EnvProduction {
			errs = append(errs, errors.New("MAIL_DELIVERY=sns only reaches pre-subscribed inboxes and must not be used in production"))
		}
	case DeliveryLog:
		if c.AppEnv == EnvProduction {
			errs = append(errs, errors.New("MAIL_DELIVERY=log must not be used in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MAIL_DELIVERY %q", c.MailDelivery))
	}
	switch c.AuthProvider {
	case AuthJWT:
		if c.AuthPublicKeyPath == "" {
			errs = append(errs, errors.New("AUTH_PUBLIC_KEY_PATH is required when AUTH_PROVIDER=jwt"))
		}
	case AuthGoogle:
		if c.GoogleClientID == "" {
			errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required when AUTH_PROVIDER=google"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider))
	}
	if c.OTPValidity <= 0 {
		errs = append(errs, errors.New("OTP_VALIDITY must be positive"))
	}
	if c.OTPHashCost < 4 || c.OTPHashCost > 31 {
		errs = append(errs, errors.New("OTP_HASH_COST must be between 4 and 31"))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}
