package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	DatabaseURL        string
	JWTSecret          []byte
	FlutterSecretKey   string
	FlutterHashSecret  string
	PaystackSecretKey  string
	FlutterRedirectURL string
	PaystackCallback   string
	KafkaAddress       string
	ServerPort         string
	LogLevel           string
}

func must(v string, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		DatabaseURL:        must(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		JWTSecret:          []byte(must(os.Getenv("JWT_SECRET"), "JWT_SECRET")),
		FlutterSecretKey:   must(os.Getenv("FLUTTER_SECRET_KEY"), "FLUTTER_SECRET_KEY"),
		FlutterHashSecret:  must(os.Getenv("FLUTTER_HASH_SECRET"), "FLUTTER_HASH_SECRET"),
		PaystackSecretKey:  must(os.Getenv("PAYSTACK_SECRET_KEY"), "PAYSTACK_SECRET_KEY"),
		FlutterRedirectURL: os.Getenv("FLUTTER_REDIRECT_URL"),
		PaystackCallback:   os.Getenv("PAYSTACK_CALLBACK_URL"),
		KafkaAddress:       os.Getenv("KAFKA_ADDRESS"),
		ServerPort:         os.Getenv("SERVER_PORT"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	return cfg
}
