package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	EnableDBCheck     bool
	MigrationsPath    string
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	// Refresh Token Config
	RefreshTokenExpiryDuration time.Duration
	RefreshTokenCookieName     string
	RefreshTokenCookiePath     string
	RefreshTokenSecret         string

	// External OAuth Providers
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendBaseURL    string
	CORSAllowedOrigins []string

	PosthogAPIKey   string
	PosthogEndpoint string

	// Aggregate locking
	RedisURL        string
	LockTTL         time.Duration
	LockWaitTimeout time.Duration

	// Quote workflow definitions, one <productID>.yaml per product
	QuoteWorkflowDir string

	// Numbering
	SnowflakeNodeID int64

	// Optional DynamoDB mirror of quote read models
	DynamoDBReadModelTable string
	DynamoDBEndpoint       string
	AWSRegion              string

	// Payments
	PaymentGatewayMock     bool
	MercadoPagoAccessToken string
	MerchantFeePercentage  decimal.Decimal
	MerchantFeeFixed       decimal.Decimal
	GSTRate                decimal.Decimal
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "insurance-platform")
	viper.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	viper.SetDefault("REFRESH_TOKEN_COOKIE_NAME", "rtid")
	viper.SetDefault("REFRESH_TOKEN_COOKIE_PATH", "/api/v1/auth")
	viper.SetDefault("REFRESH_TOKEN_SECRET", "default_insecure_refresh_secret_please_change_this_!@#$")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "")
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("LOCK_WAIT_TIMEOUT", "10s")
	viper.SetDefault("QUOTE_WORKFLOW_DIR", "")
	viper.SetDefault("SNOWFLAKE_NODE_ID", 1)
	viper.SetDefault("DYNAMODB_READ_MODEL_TABLE", "")
	viper.SetDefault("DYNAMODB_ENDPOINT", "")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("PAYMENT_GATEWAY_MOCK", true)
	viper.SetDefault("MERCADOPAGO_ACCESS_TOKEN", "")
	viper.SetDefault("MERCHANT_FEE_PERCENTAGE", "0.015")
	viper.SetDefault("MERCHANT_FEE_FIXED", "0")
	viper.SetDefault("GST_RATE", "0.10")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.JWTExpiryDuration = durationOrDefault("JWT_EXPIRY_DURATION", time.Hour)

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "insurance-platform"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.RefreshTokenExpiryDuration = durationOrDefault("REFRESH_TOKEN_EXPIRY_DURATION", 7*24*time.Hour)
	cfg.RefreshTokenCookieName = viper.GetString("REFRESH_TOKEN_COOKIE_NAME")
	cfg.RefreshTokenCookiePath = viper.GetString("REFRESH_TOKEN_COOKIE_PATH")
	cfg.RefreshTokenSecret = viper.GetString("REFRESH_TOKEN_SECRET")

	cfg.GoogleClientID = viper.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = viper.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = viper.GetString("GOOGLE_REDIRECT_URL")
	cfg.FrontendBaseURL = viper.GetString("FRONTEND_BASE_URL")
	if cfg.GoogleClientID == "" {
		log.Println("Warning: GOOGLE_CLIENT_ID not set. Google sign in will not function.")
	}

	cfg.CORSAllowedOrigins = []string{cfg.FrontendBaseURL}
	if origins := viper.GetString("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = strings.Split(origins, ",")
	}

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	cfg.RedisURL = viper.GetString("REDIS_URL")
	cfg.LockTTL = durationOrDefault("LOCK_TTL", 30*time.Second)
	cfg.LockWaitTimeout = durationOrDefault("LOCK_WAIT_TIMEOUT", 10*time.Second)

	cfg.QuoteWorkflowDir = viper.GetString("QUOTE_WORKFLOW_DIR")
	cfg.SnowflakeNodeID = viper.GetInt64("SNOWFLAKE_NODE_ID")

	cfg.DynamoDBReadModelTable = viper.GetString("DYNAMODB_READ_MODEL_TABLE")
	cfg.DynamoDBEndpoint = viper.GetString("DYNAMODB_ENDPOINT")
	cfg.AWSRegion = viper.GetString("AWS_REGION")

	cfg.PaymentGatewayMock = viper.GetBool("PAYMENT_GATEWAY_MOCK")
	cfg.MercadoPagoAccessToken = viper.GetString("MERCADOPAGO_ACCESS_TOKEN")
	if !cfg.PaymentGatewayMock && cfg.MercadoPagoAccessToken == "" {
		log.Println("Warning: MERCADOPAGO_ACCESS_TOKEN not set while PAYMENT_GATEWAY_MOCK is false. Payments will fail.")
	}
	cfg.MerchantFeePercentage = decimalOrDefault("MERCHANT_FEE_PERCENTAGE", decimal.RequireFromString("0.015"))
	cfg.MerchantFeeFixed = decimalOrDefault("MERCHANT_FEE_FIXED", decimal.Zero)
	cfg.GSTRate = decimalOrDefault("GST_RATE", decimal.RequireFromString("0.10"))

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	return cfg, nil
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def)
		}
		return def
	}
	return d
}

func decimalOrDefault(key string, def decimal.Decimal) decimal.Decimal {
	raw := viper.GetString(key)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def)
		}
		return def
	}
	return d
}
