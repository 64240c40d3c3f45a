package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Slack      SlackConfig      `mapstructure:"slack"`
	Jira       JiraConfig       `mapstructure:"jira"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Server     ServerConfig     `mapstructure:"server"`
}

type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	SigningSecret string `mapstructure:"signing_secret"`
	ChannelID     string `mapstructure:"channel_id"`
}

type JiraConfig struct {
	ServerURL  string `mapstructure:"server_url"`
	User       string `mapstructure:"user"`
	APIToken   string `mapstructure:"api_token"`
	ProjectKey string `mapstructure:"project_key"`
	// AssigneeMapping resolves display names from analysis output to Jira
	// account names. Operational data, so it lives in configuration.
	AssigneeMapping map[string]string `mapstructure:"assignee_mapping"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type DedupConfig struct {
	// Backend selects the durable store: "redis", "postgres" or "memory".
	Backend  string         `mapstructure:"backend"`
	RedisURL string         `mapstructure:"redis_url"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ProcessingConfig struct {
	LookbackMinutes     int  `mapstructure:"lookback_minutes"`
	PollEnabled         bool `mapstructure:"poll_enabled"`
	PollIntervalMinutes int  `mapstructure:"poll_interval_minutes"`
	// BatchMode sends each poll window through one classification request
	// instead of analyzing units one by one.
	BatchMode           bool    `mapstructure:"batch_mode"`
	RecentTicketLimit   int     `mapstructure:"recent_ticket_limit"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("dedup.backend", "memory")
	v.SetDefault("dedup.database.port", 5432)
	v.SetDefault("dedup.database.host", "localhost")
	v.SetDefault("dedup.database.user", "postgres")
	v.SetDefault("dedup.database.sslmode", "disable")
	v.SetDefault("openai.model", "gpt-4.1-mini")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("processing.lookback_minutes", 5)
	v.SetDefault("processing.poll_enabled", true)
	v.SetDefault("processing.poll_interval_minutes", 1)
	v.SetDefault("processing.batch_mode", false)
	v.SetDefault("processing.recent_ticket_limit", 30)
	v.SetDefault("processing.confidence_threshold", 0.5)
	v.SetDefault("server.port", 8080)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Dedup.Database = dbConfig
	}

	// Get other environment variables
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Dedup.RedisURL = redisURL
	}

	if token := v.GetString("SLACK_BOT_TOKEN"); token != "" {
		config.Slack.BotToken = token
	}

	if secret := v.GetString("SLACK_SIGNING_SECRET"); secret != "" {
		config.Slack.SigningSecret = secret
	}

	if channel := v.GetString("SLACK_CHANNEL_ID"); channel != "" {
		config.Slack.ChannelID = channel
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if token := v.GetString("JIRA_API_TOKEN"); token != "" {
		config.Jira.APIToken = token
	}

	return &config, nil
}
