package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Document store configuration
	StoreBackend string // "rtdb" or "memory"
	RTDBURL      string
	RTDBAuth     string
	DevicesPath  string
	GroupsPath   string

	// Control engine cadences
	SchedulePollInterval time.Duration
	LimitPollInterval    time.Duration

	// MQTT Configuration
	MQTTBroker            string
	MQTTClientID          string
	MQTTUsername          string
	MQTTPassword          string
	MQTTTopicTelemetry    string
	MQTTTopicRelayCommand string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Kafka ledger configuration
	KafkaBrokers     []string
	KafkaLedgerTopic string

	// Unplug detection
	UnplugZeroSamples  int
	UnplugPowerEpsilon float64

	// Billing tariff
	TariffRatePerKWh float64
	TariffCurrency   string

	// Status API
	HTTPPort string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// Document store configuration
		StoreBackend: getEnv("STORE_BACKEND", "rtdb"),
		RTDBURL:      getEnv("RTDB_URL", "https://ecoplugs-default-rtdb.firebaseio.com"),
		RTDBAuth:     getEnv("RTDB_AUTH", ""),
		DevicesPath:  getEnv("DEVICES_PATH", "devices"),
		GroupsPath:   getEnv("GROUPS_PATH", "combined_limit_settings"),

		// Control engine cadences
		SchedulePollInterval: getEnvDuration("SCHEDULE_POLL_INTERVAL", 15*time.Second),
		LimitPollInterval:    getEnvDuration("LIMIT_POLL_INTERVAL", 60*time.Second),

		// MQTT Configuration
		MQTTBroker:            getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:          getEnv("MQTT_CLIENT_ID", "ecoplug-backend"),
		MQTTUsername:          getEnv("MQTT_USERNAME", ""),
		MQTTPassword:          getEnv("MQTT_PASSWORD", ""),
		MQTTTopicTelemetry:    getEnv("MQTT_TOPIC_TELEMETRY", "ecoplug/+/telemetry"),
		MQTTTopicRelayCommand: getEnv("MQTT_TOPIC_RELAY_COMMAND", "ecoplug/{outlet}/relay/set"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "ecoplug"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// Kafka ledger configuration
		KafkaBrokers:     getEnvList("KAFKA_BROKERS", nil),
		KafkaLedgerTopic: getEnv("KAFKA_LEDGER_TOPIC", "ecoplug.control.ledger"),

		// Unplug detection
		UnplugZeroSamples:  getEnvInt("UNPLUG_ZERO_SAMPLES", 5),
		UnplugPowerEpsilon: getEnvFloat("UNPLUG_POWER_EPSILON", 1.0),

		// Billing tariff
		TariffRatePerKWh: getEnvFloat("TARIFF_RATE_PER_KWH", 12.0),
		TariffCurrency:   getEnv("TARIFF_CURRENCY", "PHP"),

		// Status API
		HTTPPort: getEnv("HTTP_PORT", "8080"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var list []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
