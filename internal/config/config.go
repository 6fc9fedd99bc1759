package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type NSQ struct {
	NsqdTCPAddr    string // e.g. nsqd:4150
	LookupHTTPAddr string // e.g. http://nsqlookupd:4161
	Topic          string // NSQ topic for webhook deliveries
	Channel        string // NSQ channel name for workers
}

type Redis struct {
	Addr     string // e.g. redis:6379
	Password string
	DB       int
}

type Delivery struct {
	MaxAttempts     int             // Maximum delivery attempts per task
	BackoffSchedule []time.Duration // Retry backoff durations, attempt-indexed
	JitterPercent   float64         // Backoff jitter percentage (0.0-1.0)
	AttemptTimeout  time.Duration   // Per-attempt HTTP timeout
	Workers         int             // Delivery worker pool size
	LedgerCapacity  int             // In-memory delivery log size
}

type Auth struct {
	Enabled       bool   // JWT auth on the management API
	PublicKeyPath string // PEM-encoded RSA public key
	Issuer        string
	Audience      string
}

type FakeReceiver struct {
	FailFirstN      int           // Number of requests to fail initially
	EndpointSecret  string        // Secret for webhook signature verification
	ResponseDelayMS int           // Simulated response delay in milliseconds
	Port            string        // Server listen port
	ReadTimeout     time.Duration // HTTP read timeout
	WriteTimeout    time.Duration // HTTP write timeout
	IdleTimeout     time.Duration // HTTP idle timeout
}

type Config struct {
	AppName      string
	HTTPPort     string // :8080
	StoreDriver  string // memory | postgres
	QueueDriver  string // memory | redis | nsq
	DB           DB
	NSQ          NSQ
	Redis        Redis
	Delivery     Delivery
	Auth         Auth
	FakeReceiver FakeReceiver
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseBackoffSchedule(schedule string) []time.Duration {
	if schedule == "" {
		return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}

	parts := strings.Split(schedule, ",")
	durations := make([]time.Duration, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if d, err := time.ParseDuration(part); err == nil {
			durations = append(durations, d)
		}
	}

	if len(durations) == 0 {
		// Fallback to default if parsing failed
		return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}

	return durations
}

func FromEnv() Config {
	return Config{
		AppName:     getenv("APP_NAME", "fxhooks"),
		HTTPPort:    getenv("HTTP_PORT", ":8080"),
		StoreDriver: getenv("STORE_DRIVER", "memory"),
		QueueDriver: getenv("QUEUE_DRIVER", "memory"),
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "fxhooks"),
		},
		NSQ: NSQ{
			NsqdTCPAddr:    getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			LookupHTTPAddr: getenv("NSQ_LOOKUP_HTTP_ADDR", "http://nsqlookupd:4161"),
			Topic:          getenv("NSQ_DELIVERIES_TOPIC", "fxhooks_deliveries"),
			Channel:        getenv("NSQ_WORKER_CHANNEL", "worker"),
		},
		Redis: Redis{
			Addr:     getenv("REDIS_ADDR", "redis:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Delivery: Delivery{
			MaxAttempts:     getenvInt("MAX_ATTEMPTS", 3),
			BackoffSchedule: parseBackoffSchedule(getenv("BACKOFF_SCHEDULE", "")),
			JitterPercent:   getenvFloat("BACKOFF_JITTER_PCT", 0),
			AttemptTimeout:  getenvDuration("ATTEMPT_TIMEOUT", 10*time.Second),
			Workers:         getenvInt("DELIVERY_WORKERS", 4),
			LedgerCapacity:  getenvInt("LEDGER_CAPACITY", 1000),
		},
		Auth: Auth{
			Enabled:       getenvBool("AUTH_ENABLED", false),
			PublicKeyPath: getenv("AUTH_PUBLIC_KEY_PATH", ""),
			Issuer:        getenv("AUTH_ISSUER", "fxhooks"),
			Audience:      getenv("AUTH_AUDIENCE", "fxhooks-api"),
		},
		FakeReceiver: FakeReceiver{
			FailFirstN:      getenvInt("FAIL_FIRST_N", 0),
			EndpointSecret:  getenv("ENDPOINT_SECRET", ""),
			ResponseDelayMS: getenvInt("RESPONSE_DELAY_MS", 0),
			Port:            getenv("FAKE_RECEIVER_PORT", ":8081"),
			ReadTimeout:     getenvDuration("FAKE_RECEIVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getenvDuration("FAKE_RECEIVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getenvDuration("FAKE_RECEIVER_IDLE_TIMEOUT", 60*time.Second),
		},
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
