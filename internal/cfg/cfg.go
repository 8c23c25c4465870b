package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	StoreURL        string
	ServiceKey      string
	RealtimeURL     string
	APIPort         int
	MetricsPort     int
	DataPath        string
	RESTTimeout     time.Duration
	DriverFetchCap  int
	TrainFetchCap   int
	MinTrainingRows int
}

type ConfigFile struct {
	Store struct {
		URL         string `yaml:"url"`
		ServiceKey  string `yaml:"serviceKey"`
		RealtimeURL string `yaml:"realtimeURL"`
	} `yaml:"store"`

	Training struct {
		DriverFetchCap  int `yaml:"driverFetchCap"`
		TrainFetchCap   int `yaml:"trainFetchCap"`
		MinTrainingRows int `yaml:"minTrainingRows"`
	} `yaml:"training"`

	System struct {
		APIPort     int    `yaml:"apiPort"`
		MetricsPort int    `yaml:"metricsPort"`
		DataPath    string `yaml:"dataPath"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 30 * time.Second
	}

	// Environment variables win over file values
	settings := Settings{
		StoreURL:        getEnvOrDefault("STORE_URL", config.Store.URL),
		ServiceKey:      getEnvOrDefault("STORE_SERVICE_KEY", config.Store.ServiceKey),
		RealtimeURL:     getEnvOrDefault("STORE_REALTIME_URL", config.Store.RealtimeURL),
		APIPort:         getIntFromEnvOrConfig("API_PORT", config.System.APIPort, 8000),
		MetricsPort:     getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 9090),
		DataPath:        getEnvOrDefault("DATA_PATH", config.System.DataPath),
		RESTTimeout:     restTimeout,
		DriverFetchCap:  getIntFromEnvOrConfig("DRIVER_FETCH_CAP", config.Training.DriverFetchCap, 10000),
		TrainFetchCap:   getIntFromEnvOrConfig("TRAIN_FETCH_CAP", config.Training.TrainFetchCap, 20000),
		MinTrainingRows: getIntFromEnvOrConfig("MIN_TRAINING_ROWS", config.Training.MinTrainingRows, 100),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	storeURL, err := getEnvRequired("STORE_URL")
	if err != nil {
		return Settings{}, err
	}

	serviceKey, err := getEnvRequired("STORE_SERVICE_KEY")
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		StoreURL:        storeURL,
		ServiceKey:      serviceKey,
		RealtimeURL:     os.Getenv("STORE_REALTIME_URL"), // optional
		APIPort:         getIntOrDefault("API_PORT", 8000),
		MetricsPort:     getIntOrDefault("METRICS_PORT", 9090),
		DataPath:        os.Getenv("DATA_PATH"), // optional
		RESTTimeout:     getDurationOrDefault("REST_TIMEOUT", 30*time.Second),
		DriverFetchCap:  getIntOrDefault("DRIVER_FETCH_CAP", 10000),
		TrainFetchCap:   getIntOrDefault("TRAIN_FETCH_CAP", 20000),
		MinTrainingRows: getIntOrDefault("MIN_TRAINING_ROWS", 100),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is missing", key)
	}
	return v, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.StoreURL == "" {
		return fmt.Errorf("store URL is required")
	}
	if settings.ServiceKey == "" {
		return fmt.Errorf("store service key is required")
	}

	if settings.APIPort < 1 || settings.APIPort > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535, got %d", settings.APIPort)
	}
	if settings.MetricsPort < 1 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535, got %d", settings.MetricsPort)
	}
	if settings.APIPort == settings.MetricsPort {
		return fmt.Errorf("API port and metrics port must differ, both are %d", settings.APIPort)
	}

	if settings.RESTTimeout < time.Second || settings.RESTTimeout > 5*time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 5m, got %v", settings.RESTTimeout)
	}

	if settings.DriverFetchCap <= 0 {
		return fmt.Errorf("driver fetch cap must be positive, got %d", settings.DriverFetchCap)
	}
	if settings.TrainFetchCap <= 0 {
		return fmt.Errorf("train fetch cap must be positive, got %d", settings.TrainFetchCap)
	}
	if settings.MinTrainingRows <= 0 {
		return fmt.Errorf("minimum training rows must be positive, got %d", settings.MinTrainingRows)
	}

	return nil
}
