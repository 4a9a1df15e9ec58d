package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" env-default:"local"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Admin      AdminConfig      `yaml:"admin"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Notify     NotifyConfig     `yaml:"notify"`
	CORS       CORSConfig       `yaml:"cors"`
	Static     StaticConfig     `yaml:"static"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:3000"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
}

// DSN собирает строку подключения к postgres
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type MigrationsConfig struct {
	Path string `yaml:"path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// AdminConfig учётные данные администратора. Пароль и секрет сессии проверяются при старте сервера,
// мигратору и ordersctl они не нужны.
type AdminConfig struct {
	User     string `yaml:"user" env:"ADMIN_USER" env-default:"admin"`
	Password string `yaml:"-" env:"ADMIN_PASS"`
}

// SessionConfig настройка админской сессии
type SessionConfig struct {
	Secret     string        `yaml:"-" env:"SESSION_SECRET"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE" env-default:"print_orders_session"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"12h"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// RedisConfig - если адрес пустой, сессии и лимиты живут в памяти процесса
type RedisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit" env:"RATE_LIMIT" env-default:"10"`
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"60s"`
	// доверять X-Forwarded-For и X-Real-IP (сервис за обратным прокси)
	TrustProxy bool `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY" env-default:"false"`
}

type UploadsConfig struct {
	Dir     string `yaml:"dir" env:"UPLOADS_DIR" env-default:"./uploads"`
	MaxSize int64  `yaml:"max_size" env:"UPLOADS_MAX_SIZE" env-default:"8388608"`
}

// NotifyConfig настройка уведомлений оператору. Без получателя уведомления выключены.
type NotifyConfig struct {
	Recipient string        `yaml:"recipient" env:"NOTIFY_EMAIL"`
	From      string        `yaml:"from" env:"SMTP_FROM" env-default:"no-reply@printing.example"`
	Timeout   time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT" env-default:"30s"`
	SMTP      SMTPConfig    `yaml:"smtp"`
	ResendKey string        `yaml:"-" env:"RESEND_API_KEY"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"-" env:"SMTP_PASS"`
	Secure   bool   `yaml:"secure" env:"SMTP_SECURE" env-default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

type StaticConfig struct {
	Dir string `yaml:"dir" env:"STATIC_DIR" env-default:"./public"`
}

// MustLoad - если не загружаем - паникуем.
// Без пути к файлу конфигурация читается только из окружения.
func MustLoad() *Config {
	return MustLoadFrom(fetchConfigPath())
}

// MustLoadFrom подгружает .env и читает конфиг из файла, а при пустом пути - из окружения.
// Для бинарей, которые разбирают флаги сами.
func MustLoadFrom(configPath string) *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("can't load .env file: %v", err)
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		return MustLoadFromEnv()
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}

func MustLoadFromEnv() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("can't read config from environment: %v", err)
	}
	return &cfg
}
