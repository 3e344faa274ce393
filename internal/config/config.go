package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv points to an optional YAML file.
const PathEnv = "GREENHOUSE_CONFIG"

type Config struct {
	Addr        string        `yaml:"addr"`
	TickUnit    time.Duration `yaml:"tick_unit"`
	SnapshotDir string        `yaml:"snapshot_dir"`
	CipherKey   string        `yaml:"cipher_key"`
	HTTPAddr    string        `yaml:"http_addr"`
	GRPCAddr    string        `yaml:"grpc_addr"`
	Seed        int64         `yaml:"seed"`

	Soil   SoilConfig   `yaml:"soil"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Influx InfluxConfig `yaml:"influx"`
}

// SoilConfig locates the greenhouses for the SoilGrids moisture seed. Zero
// coordinates skip the lookup.
type SoilConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type MQTTConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	ClientID      string `yaml:"client_id"`
	ReadingsTopic string `yaml:"readings_topic"`
	CommandTopic  string `yaml:"command_topic"`
	ResultTopic   string `yaml:"result_topic"`
}

type InfluxConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

func Default() *Config {
	return &Config{
		Addr:        ":8080",
		TickUnit:    time.Second,
		SnapshotDir: "data",
		HTTPAddr:    ":9090",
		GRPCAddr:    ":50051",
		MQTT: MQTTConfig{
			Host:          "localhost",
			Port:          1883,
			User:          "guest",
			Password:      "guest",
			ClientID:      "greenhouse-server",
			ReadingsTopic: "greenhouse/%d/readings",
			CommandTopic:  "greenhouse/+/command",
			ResultTopic:   "greenhouse/%d/result",
		},
		Influx: InfluxConfig{
			URL:         "http://localhost:8086",
			Org:         "greenhouse",
			Bucket:      "readings",
			Measurement: "greenhouse_reading",
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (or $GREENHOUSE_CONFIG),
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = env("GREENHOUSE_ADDR", c.Addr)
	c.TickUnit = envDuration("GREENHOUSE_TICK_UNIT", c.TickUnit)
	c.SnapshotDir = env("GREENHOUSE_SNAPSHOT_DIR", c.SnapshotDir)
	c.CipherKey = env("GREENHOUSE_CIPHER_KEY", c.CipherKey)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = env("GRPC_ADDR", c.GRPCAddr)
	c.Seed = int64(envInt("GREENHOUSE_SEED", int(c.Seed)))

	c.Soil.Lat = envFloat("SOIL_LAT", c.Soil.Lat)
	c.Soil.Lon = envFloat("SOIL_LON", c.Soil.Lon)

	c.MQTT.Enabled = envBool("MQTT_ENABLED", c.MQTT.Enabled)
	c.MQTT.Host = env("RABBITMQ_HOST", env("MQTT_HOST", c.MQTT.Host))
	c.MQTT.Port = envInt("RABBITMQ_PORT", envInt("MQTT_PORT", c.MQTT.Port))
	c.MQTT.User = env("RABBITMQ_USER", c.MQTT.User)
	c.MQTT.Password = env("RABBITMQ_PASSWORD", c.MQTT.Password)
	c.MQTT.ClientID = env("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.ReadingsTopic = env("MQTT_READINGS_TOPIC", c.MQTT.ReadingsTopic)
	c.MQTT.CommandTopic = env("MQTT_COMMAND_TOPIC", c.MQTT.CommandTopic)
	c.MQTT.ResultTopic = env("MQTT_RESULT_TOPIC", c.MQTT.ResultTopic)

	c.Influx.Enabled = envBool("INFLUX_ENABLED", c.Influx.Enabled)
	c.Influx.URL = env("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = env("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = env("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = env("INFLUX_BUCKET", c.Influx.Bucket)
	c.Influx.Measurement = env("MEASUREMENT", c.Influx.Measurement)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr is required")
	}
	if c.TickUnit <= 0 {
		return fmt.Errorf("config: tick_unit must be positive, got %s", c.TickUnit)
	}
	if c.MQTT.Enabled && (c.MQTT.Host == "" || c.MQTT.Port <= 0) {
		return errors.New("config: mqtt host and port are required when mqtt is enabled")
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Token == "" || c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("config: influx config incomplete")
	}
	return nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
