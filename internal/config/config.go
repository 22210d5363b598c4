package config

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const EnvProduction = "prod"

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" env-default:"local"` // local, dev, prod
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	MPesa      MPesaConfig      `yaml:"mpesa"`
	Resend     ResendConfig     `yaml:"resend"`
	Seller     SellerConfig     `yaml:"seller"`
	CORS       CORSConfig       `yaml:"cors"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
}

type HTTPServerConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"5s"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

// DSN renders a postgres URL for lib/pq and golang-migrate. params are key/value pairs
// appended to the query, e.g. "x-migrations-table", "migrations".
func (d DatabaseConfig) DSN(params ...string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	for i := 0; i+1 < len(params); i += 2 {
		q.Set(params[i], params[i+1])
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

type JWTConfig struct {
	Secret     string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL   int    `yaml:"token_ttl" env-default:"10080"` // minutes
	CookieName string `yaml:"cookie_name" env-default:"token"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MPesaConfig holds Daraja credentials. Secrets come only from the environment.
type MPesaConfig struct {
	Env            string        `yaml:"env" env:"MPESA_ENV" env-default:"sandbox"`
	BaseURL        string        `yaml:"base_url" env:"MPESA_BASE_URL"`
	ConsumerKey    string        `yaml:"-" env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `yaml:"-" env:"MPESA_CONSUMER_SECRET"`
	Passkey        string        `yaml:"-" env:"MPESA_PASSKEY"`
	ShortCode      string        `yaml:"shortcode" env:"MPESA_SHORTCODE"`
	CallbackURL    string        `yaml:"callback_url" env:"MPESA_CALLBACK_URL"`
	Timeout        time.Duration `yaml:"timeout" env-default:"15s"`
}

type ResendConfig struct {
	APIKey string `yaml:"-" env:"RESEND_API_KEY"`
	From   string `yaml:"from" env:"RESEND_FROM" env-default:"no-reply@example.com"`
}

// SellerConfig enables the emailed-code login for the shop owner account.
type SellerConfig struct {
	Email    string        `yaml:"-" env:"SELLER_EMAIL"`
	Password string        `yaml:"-" env:"SELLER_PASSWORD"`
	CodeTTL  time.Duration `yaml:"code_ttl" env-default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers" env:"KAFKA_BROKERS"` // comma separated, empty disables the relay
	Topic   string `yaml:"topic" env-default:"gogol.order-events"`
}

func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type RealtimeConfig struct {
	SendBuffer   int           `yaml:"send_buffer" env-default:"16"`
	PingInterval time.Duration `yaml:"ping_interval" env-default:"25s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

// IsProduction switches cookie flags and the dev fallbacks of the auth flows.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// MustLoad reads the config from -config or CONFIG_PATH and dies on failure.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	// .env is optional; real env vars take precedence
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
