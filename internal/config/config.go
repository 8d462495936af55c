// Package config предоставляет структуры и функцию для парсинга и загрузки
// конфигурации сервиса. Файл берётся из CONFIG_PATH, секреты можно
// переопределять переменными окружения.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env            string `yaml:"env" env:"ENV" env-default:"local"`
	FrontendOrigin string `yaml:"frontend_origin" env:"FRONTEND_ORIGIN" env-default:"http://localhost:5173"`
	HTTPServer     `yaml:"http_server"`
	RecordStore    `yaml:"record_store"`
	Stripe         `yaml:"stripe"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":3002"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RecordStore структура для подключения к record store (PocketBase-совместимый
// HTTP-API с коллекциями). Админские учётные данные обмениваются на bearer-токен.
type RecordStore struct {
	URL           string        `yaml:"url" env:"POCKETBASE_URL" env-default:"http://localhost:8090"`
	AdminEmail    string        `yaml:"admin_email" env:"ADMIN_EMAIL"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

// Stripe структура с ключами платёжного провайдера.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PriceProID    string `yaml:"price_pro_id" env:"STRIPE_PRICE_PRO"`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH,
// и завершает процесс при любой ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
