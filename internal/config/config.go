package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the host configuration.
type Config struct {
	Port           string
	TableIDs       []int
	MaxOrders      int
	MaxOrderItems  int
	GSTPercent     string
	AllowedOrigins []string
	DatabaseURL    string
	AMQPURL        string
}

// TerminalConfig configures one table terminal.
type TerminalConfig struct {
	TableID        int
	HostURL        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	TickInterval   time.Duration
	LogFile        string
}

// ChefConfig configures the chef console.
type ChefConfig struct {
	HostURL        string
	RequestTimeout time.Duration
}

// LoadDotEnv reads a .env file in the working directory if there is one.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the host configuration from the environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	tableIDs, err := parseIntList(getEnv("TABLE_IDS", "1,2"))
	if err != nil {
		return nil, fmt.Errorf("TABLE_IDS: %w", err)
	}
	maxOrders, err := getEnvInt("MAX_ORDERS", 10)
	if err != nil {
		return nil, err
	}
	maxItems, err := getEnvInt("MAX_ORDER_ITEMS", 20)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           getEnv("PORT", "8081"),
		TableIDs:       tableIDs,
		MaxOrders:      maxOrders,
		MaxOrderItems:  maxItems,
		GSTPercent:     getEnv("GST_PERCENT", "18"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}, nil
}

// LoadTerminal reads the terminal configuration from the environment.
func LoadTerminal() (*TerminalConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	tableID, err := getEnvInt("TABLE_ID", 1)
	if err != nil {
		return nil, err
	}
	poll, err := getEnvDuration("POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	tick, err := getEnvDuration("TICK_INTERVAL", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}

	return &TerminalConfig{
		TableID:        tableID,
		HostURL:        strings.TrimRight(getEnv("HOST_URL", "http://localhost:8081"), "/"),
		PollInterval:   poll,
		RequestTimeout: timeout,
		TickInterval:   tick,
		LogFile:        getEnv("LOG_FILE", "terminal.log"),
	}, nil
}

// LoadChef reads the chef console configuration from the environment.
func LoadChef() (*ChefConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &ChefConfig{
		HostURL:        strings.TrimRight(getEnv("HOST_URL", "http://localhost:8081"), "/"),
		RequestTimeout: timeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one id is required")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
