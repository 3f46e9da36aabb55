package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// GameConfig holds the tunables of the guessing game itself.
type GameConfig struct {
	RoomSize          int           `mapstructure:"room_size"`
	TotalRounds       int           `mapstructure:"total_rounds"`
	KingBonus         int           `mapstructure:"king_bonus"`
	NextRoundDelay    time.Duration `mapstructure:"next_round_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.room_size", 4)
	viper.SetDefault("game.total_rounds", 4)
	viper.SetDefault("game.king_bonus", 1000)
	viper.SetDefault("game.next_round_delay", 5*time.Second)
	viper.SetDefault("game.heartbeat_interval", 30*time.Second)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
