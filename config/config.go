package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	RedisURL string
	CartTTL  time.Duration

	MongoURI string
	MongoDB  string

	PostgresDSN string

	KafkaBrokers []string
	OrderTopic   string

	// Callback-style gateway (hosted widget).
	PaymentInitiateURL string
	PaymentAccessKey   string

	// Redirect-style gateway (Stripe).
	StripeSecretKey string

	Currency string

	AllowedOrigins []string

	JWTSecret string

	SNSTopicArn string

	OutboxTick        time.Duration
	OutboxMaxAttempts int
}

func Load() Config {
	// .env is optional; real deployments use the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment")
	}

	return Config{
		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		RedisURL: getEnv("REDIS_URL", "redis://redis:6379"),
		CartTTL:  time.Hour * 24 * 7,

		MongoURI: getEnv("MONGO_URI", "mongodb://mongo:27017"),
		MongoDB:  getEnv("MONGO_DB", "lacarte"),

		PostgresDSN: getEnv("POSTGRES_DSN", "host=postgres user=lacarte password=lacarte dbname=lacarte port=5432 sslmode=disable"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderTopic:   getEnv("ORDER_TOPIC", "order.events"),

		PaymentInitiateURL: getEnv("PAYMENT_INITIATE_URL", "https://payments.la-carte.app/api/session"),
		PaymentAccessKey:   getEnv("PAYMENT_ACCESS_KEY", ""),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),

		Currency: getEnv("CURRENCY", "inr"),

		AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),

		SNSTopicArn: getEnv("SNS_ORDER_TOPIC_ARN", ""),

		OutboxTick:        time.Second * 5,
		OutboxMaxAttempts: 10,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
