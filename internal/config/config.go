// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// GameConfig holds the timing limits and static texts of the quiz host.
// Deadlines are evaluated lazily against these limits when the next
// message for a chat arrives.
type GameConfig struct {
	DiscussionMainSeconds  int    `mapstructure:"discussion_main_seconds"`
	DiscussionExtraSeconds int    `mapstructure:"discussion_extra_seconds"`
	CapitanSeconds         int    `mapstructure:"capitan_seconds"`
	AnswerSeconds          int    `mapstructure:"answer_seconds"`
	MaxTeamSize            int    `mapstructure:"max_team_size"`
	AboutText              string `mapstructure:"about_text"`
	RulesText              string `mapstructure:"rules_text"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, GAME_ANSWER_SECONDS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Bot defaults
	v.SetDefault("bot.poll_timeout", "60s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "quizbot")
	v.SetDefault("database.name", "quizbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Game defaults
	v.SetDefault("game.discussion_main_seconds", 50)
	v.SetDefault("game.discussion_extra_seconds", 10)
	v.SetDefault("game.capitan_seconds", 30)
	v.SetDefault("game.answer_seconds", 30)
	v.SetDefault("game.max_team_size", 6)
	v.SetDefault("game.about_text", defaultAboutText)
	v.SetDefault("game.rules_text", defaultRulesText)
}

const defaultAboutText = "This is a Chto Gde Kogda host.\n" +
	"IMPORTANT! Give me Admin rights so I can see messages\n" +
	"Send /rules to read the game rules\n" +
	"Send /team_up to form a team\n" +
	"Send /start_game to start game\n" +
	"Send /end_game anytime to end the game\n" +
	"Send /group_stats to see group statistic\n" +
	"Send /player_stats to see personal statistic"

const defaultRulesText = "Game is played up to 6 points.\n" +
	"Randomly selected capitan will choose the player who will answer.\n" +
	"If the answer is correct the team gains 1 point, otherwise the host gains 1 point.\n" +
	"If the capitan spends too much time choosing, or the answering player " +
	"spends too much time answering, the host gains 1 point.\n" +
	"Good luck!"
