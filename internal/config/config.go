package config

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	JWTSecret         string
	TokenExpiration   time.Duration
	ReconcileInterval time.Duration
	OrderStaleAfter   time.Duration
	DebitTimeout      time.Duration
}

// Load загружает конфигурацию из флагов командной строки и переменных
// окружения. Приоритет: переменные окружения > флаги > значения по
// умолчанию. Файл .env, если он есть, подхватывается до чтения окружения.
func Load() *Config {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "строка подключения к PostgreSQL")
	flag.DurationVar(&cfg.ReconcileInterval, "r", 30*time.Second, "период фоновой сверки зависших заказов")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		cfg.RunAddress = envRunAddr
	}
	if envDBURI := os.Getenv("DATABASE_URI"); envDBURI != "" {
		cfg.DatabaseURI = envDBURI
	}
	if envInterval := os.Getenv("RECONCILE_INTERVAL"); envInterval != "" {
		if d, err := time.ParseDuration(envInterval); err == nil {
			cfg.ReconcileInterval = d
		}
	}

	// JWT секрет
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-secret-change-in-production"
	}

	// Время жизни токена
	cfg.TokenExpiration = 24 * time.Hour

	// Заказ считается зависшим, если находится в processing дольше этого
	// срока; списание ждёт ответа журнала не дольше DebitTimeout
	cfg.OrderStaleAfter = time.Minute
	cfg.DebitTimeout = 5 * time.Second

	return cfg
}
