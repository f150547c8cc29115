// Package config はサーバー設定を JSON ファイルと環境変数から読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/detrandix/tanks/server/domain"
	"github.com/detrandix/tanks/server/game"
)

// FileName は設定ディレクトリで探す設定ファイル名です。
const FileName = "tanks.json"

// ErrInvalidConfig は設定値が範囲外の場合に返されます。
var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
	Port int    `json:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

type SimulationConfig struct {
	TickInterval   time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	MeasureElapsed bool          `json:"measureElapsed" mapstructure:"measureElapsed"`
}

type ArenaConfig struct {
	Width  float64 `json:"width" mapstructure:"width"`
	Height float64 `json:"height" mapstructure:"height"`
}

type TankConfig struct {
	Immortality       time.Duration `json:"immortality" mapstructure:"immortality"`
	WreckTTL          time.Duration `json:"wreckTTL" mapstructure:"wreckTTL"`
	PlacementMargin   float64       `json:"placementMargin" mapstructure:"placementMargin"`
	PlacementAttempts int           `json:"placementAttempts" mapstructure:"placementAttempts"`
}

type ProtocolConfig struct {
	Codec string `json:"codec" mapstructure:"codec"`
}

type SessionConfig struct {
	IdleTimeout  time.Duration `json:"idleTimeout" mapstructure:"idleTimeout"`
	PingInterval time.Duration `json:"pingInterval" mapstructure:"pingInterval"`
}

type TelemetryConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	ServiceName string        `json:"serviceName" mapstructure:"serviceName"`
}

// Config はサーバー全体の設定です。
type Config struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" mapstructure:"log"`
	Simulation SimulationConfig `json:"simulation" mapstructure:"simulation"`
	Arena      ArenaConfig      `json:"arena" mapstructure:"arena"`
	Tank       TankConfig       `json:"tank" mapstructure:"tank"`
	Protocol   ProtocolConfig   `json:"protocol" mapstructure:"protocol"`
	Session    SessionConfig    `json:"session" mapstructure:"session"`
	Telemetry  TelemetryConfig  `json:"telemetry" mapstructure:"telemetry"`
}

func setDefaults() {
	gameDefaults := game.DefaultConfig()
	endpointDefaults := domain.DefaultEndpointConfig()

	viper.SetDefault("server.addr", "localhost")
	viper.SetDefault("server.port", 9090)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("simulation.tickInterval", "15ms")
	viper.SetDefault("simulation.measureElapsed", false)

	viper.SetDefault("arena.width", gameDefaults.Arena.Width)
	viper.SetDefault("arena.height", gameDefaults.Arena.Height)

	viper.SetDefault("tank.immortality", gameDefaults.Immortality.String())
	viper.SetDefault("tank.wreckTTL", gameDefaults.WreckTTL.String())
	viper.SetDefault("tank.placementMargin", gameDefaults.PlacementMargin)
	viper.SetDefault("tank.placementAttempts", gameDefaults.PlacementAttempts)

	viper.SetDefault("protocol.codec", "json")

	viper.SetDefault("session.idleTimeout", endpointDefaults.IdleTimeout.String())
	viper.SetDefault("session.pingInterval", endpointDefaults.PingInterval.String())

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.interval", "30s")
	viper.SetDefault("telemetry.serviceName", "tanks-server")
}

// Load は既定値に configDir/tanks.json と環境変数を重ねて読み込みます。
// 設定ファイルが無くてもエラーにはなりません。
// 環境変数は TANKS_SIMULATION_TICKINTERVAL のようにキーの . を _ に置き換えた名前で、
// server.port だけは PORT も参照します。
func Load(configDir string) (Config, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}

	viper.SetEnvPrefix("TANKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("server.port", "TANKS_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		slog.Debug("config file not found, using defaults", "dir", configDir)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は範囲外の値を ErrInvalidConfig として返します。
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, key string, value any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s = %v", ErrInvalidConfig, key, value))
		}
	}
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port", c.Server.Port)
	check(c.Simulation.TickInterval > 0, "simulation.tickInterval", c.Simulation.TickInterval)
	check(c.Arena.Width > 0, "arena.width", c.Arena.Width)
	check(c.Arena.Height > 0, "arena.height", c.Arena.Height)
	check(c.Tank.Immortality >= 0, "tank.immortality", c.Tank.Immortality)
	check(c.Tank.WreckTTL > 0, "tank.wreckTTL", c.Tank.WreckTTL)
	check(c.Tank.PlacementMargin >= 0, "tank.placementMargin", c.Tank.PlacementMargin)
	check(c.Tank.PlacementAttempts > 0, "tank.placementAttempts", c.Tank.PlacementAttempts)
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format", c.Log.Format)
	check(c.Session.IdleTimeout >= 0, "session.idleTimeout", c.Session.IdleTimeout)
	check(c.Session.PingInterval >= 0, "session.pingInterval", c.Session.PingInterval)
	check(!c.Telemetry.Enabled || c.Telemetry.Interval > 0, "telemetry.interval", c.Telemetry.Interval)

	if _, err := c.LogLevel(); err != nil {
		check(false, "log.level", c.Log.Level)
	}
	if _, err := domain.NewCodec(c.Protocol.Codec); err != nil {
		check(false, "protocol.codec", c.Protocol.Codec)
	}
	return errors.Join(errs...)
}

// Address は net/http に渡す待ち受けアドレスです。
func (c Config) Address() string {
	return net.JoinHostPort(c.Server.Addr, strconv.Itoa(c.Server.Port))
}

func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// Game はシミュレーションの調整値に変換します。戦車の寸法は既定値のままです。
func (c Config) Game() game.Config {
	cfg := game.DefaultConfig()
	cfg.Arena = game.Arena{Width: c.Arena.Width, Height: c.Arena.Height}
	cfg.Immortality = c.Tank.Immortality
	cfg.WreckTTL = c.Tank.WreckTTL
	cfg.PlacementMargin = c.Tank.PlacementMargin
	cfg.PlacementAttempts = c.Tank.PlacementAttempts
	return cfg
}

func (c Config) Endpoint() domain.EndpointConfig {
	cfg := domain.DefaultEndpointConfig()
	cfg.IdleTimeout = c.Session.IdleTimeout
	cfg.PingInterval = c.Session.PingInterval
	return cfg
}

// Room は observer を除いた Room の設定です。
func (c Config) Room() domain.RoomConfig {
	return domain.RoomConfig{
		TickInterval:   c.Simulation.TickInterval,
		MeasureElapsed: c.Simulation.MeasureElapsed,
	}
}
