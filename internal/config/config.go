package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ethtracker/internal/domain"
)

type Config struct {
	Provider         string
	EtherscanAPIKey  string
	AlchemyAPIKey    string
	EtherscanBaseURL string
	ChainID          uint64
	RequestTimeout   time.Duration
	RateLimitDelay   time.Duration

	PageSize          int
	MaxTransactions   int
	DefaultStartBlock uint64
	DefaultEndBlock   uint64
	CatalogFile       string
	BatchPause        time.Duration

	OutputDirectory  string
	FilenameFormat   string
	IncludeTimestamp bool
	CSVDelimiter     string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxAge     time.Duration
	LogMaxBackups int

	RedisAddr    string
	CacheTTL     time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	OtelEndpoint string
	HTTPAddr     string
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	chainID, err := parseUintEnv(source, "CHAIN_ID", 0)
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := parseDurationEnv(source, "REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateLimitDelay, err := parseSecondsEnv(source, "RATE_LIMIT_DELAY", 200*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	pageSize, err := parseUintEnv(source, "PAGE_SIZE", 1000)
	if err != nil {
		return Config{}, err
	}
	maxTransactions, err := parseUintEnv(source, "MAX_TRANSACTIONS", 10000)
	if err != nil {
		return Config{}, err
	}
	startBlock, err := parseUintEnv(source, "DEFAULT_START_BLOCK", 0)
	if err != nil {
		return Config{}, err
	}
	endBlock, err := parseUintEnv(source, "DEFAULT_END_BLOCK", 99999999)
	if err != nil {
		return Config{}, err
	}
	batchPause, err := parseDurationEnv(source, "BATCH_PAUSE", time.Second)
	if err != nil {
		return Config{}, err
	}
	includeTimestamp, err := parseBoolEnv(source, "INCLUDE_TIMESTAMP", true)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseUintEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxAge, err := parseDurationEnv(source, "LOG_MAX_AGE", 0)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseUintEnv(source, "LOG_MAX_BACKUPS", 5)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDurationEnv(source, "CACHE_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}

	logFile := "logs/ethtracker.log"
	if raw, ok := source.Lookup("LOG_FILE"); ok {
		logFile = strings.TrimSpace(raw)
	}

	return Config{
		Provider:         stringEnv(source, "DEFAULT_PROVIDER", "etherscan"),
		EtherscanAPIKey:  stringEnv(source, "ETHERSCAN_API_KEY", ""),
		AlchemyAPIKey:    stringEnv(source, "ALCHEMY_API_KEY", ""),
		EtherscanBaseURL: stringEnv(source, "ETHERSCAN_BASE_URL", ""),
		ChainID:          chainID,
		RequestTimeout:   requestTimeout,
		RateLimitDelay:   rateLimitDelay,

		PageSize:          int(pageSize),
		MaxTransactions:   int(maxTransactions),
		DefaultStartBlock: startBlock,
		DefaultEndBlock:   endBlock,
		CatalogFile:       stringEnv(source, "CATALOG_FILE", ""),
		BatchPause:        batchPause,

		OutputDirectory:  stringEnv(source, "OUTPUT_DIRECTORY", "./output"),
		FilenameFormat:   stringEnv(source, "FILENAME_FORMAT", "{address}_{timestamp}.csv"),
		IncludeTimestamp: includeTimestamp,
		CSVDelimiter:     rawEnv(source, "CSV_DELIMITER", ","),

		LogLevel:      stringEnv(source, "LOG_LEVEL", "info"),
		LogFormat:     stringEnv(source, "LOG_FORMAT", "text"),
		LogFile:       logFile,
		LogMaxSizeMB:  int(logMaxSize),
		LogMaxAge:     logMaxAge,
		LogMaxBackups: int(logMaxBackups),

		RedisAddr:    stringEnv(source, "REDIS_ADDR", ""),
		CacheTTL:     cacheTTL,
		KafkaBrokers: parseList(source, "KAFKA_BROKERS"),
		KafkaTopic:   stringEnv(source, "KAFKA_TOPIC", "ethtracker-transactions"),
		KafkaGroupID: stringEnv(source, "KAFKA_GROUP_ID", "ethtracker-consumer"),
		OtelEndpoint: stringEnv(source, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		HTTPAddr:     stringEnv(source, "HTTP_ADDR", ":8080"),
	}, nil
}

// APIKey returns the key configured for provider.
func (c Config) APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "alchemy":
		return c.AlchemyAPIKey
	default:
		return c.EtherscanAPIKey
	}
}

// CallsPerSecond converts the configured delay into a rate.
func (c Config) CallsPerSecond() float64 {
	if c.RateLimitDelay <= 0 {
		return 0
	}
	return float64(time.Second) / float64(c.RateLimitDelay)
}

// Validate reports every problem at once, wrapped in ErrConfiguration.
func (c Config) Validate(provider string) error {
	var problems []error
	if provider == "" {
		provider = c.Provider
	}
	if strings.TrimSpace(c.APIKey(provider)) == "" {
		problems = append(problems, fmt.Errorf("api key for %s is required", provider))
	}
	if c.RateLimitDelay <= 0 {
		problems = append(problems, errors.New("RATE_LIMIT_DELAY must be positive"))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.PageSize <= 0 || c.PageSize > 10000 {
		problems = append(problems, errors.New("PAGE_SIZE must be between 1 and 10000"))
	}
	if c.MaxTransactions <= 0 {
		problems = append(problems, errors.New("MAX_TRANSACTIONS must be positive"))
	}
	if c.DefaultStartBlock > c.DefaultEndBlock {
		problems = append(problems, errors.New("DEFAULT_START_BLOCK must not exceed DEFAULT_END_BLOCK"))
	}
	if c.CSVDelimiter == "" {
		problems = append(problems, errors.New("CSV_DELIMITER must not be empty"))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(problems...))
}

func stringEnv(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	return strings.TrimSpace(raw)
}

// rawEnv keeps surrounding whitespace, so a tab delimiter survives.
func rawEnv(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue
	}
	return raw
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %w", domain.ErrConfiguration, key, err)
	}
	return value, nil
}

func parseBoolEnv(source EnvSource, key string, defaultValue bool) (bool, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s: %w", domain.ErrConfiguration, key, err)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	raw = strings.TrimSpace(raw)
	if duration, err := time.ParseDuration(raw); err == nil {
		return duration, nil
	}
	return parseSecondsEnv(source, key, defaultValue)
}

// parseSecondsEnv accepts a float number of seconds ("0.2") or a Go duration.
func parseSecondsEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	raw = strings.TrimSpace(raw)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if duration, durErr := time.ParseDuration(raw); durErr == nil {
			return duration, nil
		}
		return 0, fmt.Errorf("%w: invalid %s: %w", domain.ErrConfiguration, key, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func parseList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(item); value != "" {
			values = append(values, value)
		}
	}
	return values
}
