package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Embedding  EmbeddingConfig
	Evaluation EvaluationConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type EmbeddingConfig struct {
	APIKey       string
	Model        string
	Dim          int
	TimeoutSec   int
	CacheEnabled bool
	CacheTTLSec  int
}

type EvaluationConfig struct {
	HallucinationThreshold float64
	TopK                   int
	TopNEvidence           int
	InputPricePer1K        float64
	OutputPricePer1K       float64
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/chateval")

	viper.SetEnvPrefix("CHATEVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dim", 1536)
	viper.SetDefault("embedding.timeoutSec", 15)
	viper.SetDefault("embedding.cacheEnabled", false)
	viper.SetDefault("embedding.cacheTTLSec", 3600)

	viper.SetDefault("evaluation.hallucinationThreshold", 0.28)
	viper.SetDefault("evaluation.topK", 5)
	viper.SetDefault("evaluation.topNEvidence", 3)
	viper.SetDefault("evaluation.inputPricePer1K", 0.03)
	viper.SetDefault("evaluation.outputPricePer1K", 0.06)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/chateval.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
