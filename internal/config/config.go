package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "mapdraw.cfg.json"

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Address         string        `json:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
	AllowedOrigins  []string      `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	SendBuffer      int           `json:"sendBuffer" mapstructure:"sendBuffer"`
	MaxMessageBytes int64         `json:"maxMessageBytes" mapstructure:"maxMessageBytes"`
}

// MapConfig holds the options handed to the browser map.
type MapConfig struct {
	StyleURL string  `json:"styleUrl" mapstructure:"styleUrl"`
	Lng      float64 `json:"lng" mapstructure:"lng"`
	Lat      float64 `json:"lat" mapstructure:"lat"`
	Zoom     float64 `json:"zoom" mapstructure:"zoom"`
}

// PaintConfig is one line style.
type PaintConfig struct {
	Color string    `json:"color" mapstructure:"color"`
	Width float64   `json:"width" mapstructure:"width"`
	Dash  []float64 `json:"dash" mapstructure:"dash"`
}

// StyleConfig holds the draft and committed line styles.
type StyleConfig struct {
	Draft PaintConfig `json:"draft" mapstructure:"draft"`
	Final PaintConfig `json:"final" mapstructure:"final"`
}

// LabelConfig holds the creation label format.
type LabelConfig struct {
	Prefix string `json:"prefix" mapstructure:"prefix"`
	Layout string `json:"layout" mapstructure:"layout"`
}

// InfluxConfig holds the usage metrics sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the InfluxDB server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the GELF log sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// MonitorConfig holds the periodic status monitor settings.
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	// MAPDRAW_SERVER_ADDRESS overrides server.address
	viper.SetEnvPrefix("mapdraw")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.readTimeout", "60s")
	viper.SetDefault("server.writeTimeout", "10s")
	viper.SetDefault("server.allowedOrigins", []string{})
	viper.SetDefault("server.sendBuffer", 256)
	viper.SetDefault("server.maxMessageBytes", 64*1024)

	viper.SetDefault("map.styleUrl", "https://demotiles.maplibre.org/style.json")
	viper.SetDefault("map.lng", 0.0)
	viper.SetDefault("map.lat", 0.0)
	viper.SetDefault("map.zoom", 2.0)

	viper.SetDefault("style.draft.color", "#FFBF00")
	viper.SetDefault("style.draft.width", 6.0)
	viper.SetDefault("style.draft.dash", []float64{3, 2})
	viper.SetDefault("style.final.color", "#808080")
	viper.SetDefault("style.final.width", 6.0)
	viper.SetDefault("style.final.dash", []float64{})

	viper.SetDefault("label.prefix", "Created: ")
	viper.SetDefault("label.layout", "02.01.2006")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "mapdraw")
	viper.SetDefault("influx.bucket", "mapdraw")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "30s")
	viper.SetDefault("monitor.statusFile", "")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the server settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:         viper.GetString("server.address"),
		ReadTimeout:     viper.GetDuration("server.readTimeout"),
		WriteTimeout:    viper.GetDuration("server.writeTimeout"),
		AllowedOrigins:  viper.GetStringSlice("server.allowedOrigins"),
		SendBuffer:      viper.GetInt("server.sendBuffer"),
		MaxMessageBytes: viper.GetInt64("server.maxMessageBytes"),
	}
}

// GetMapConfig returns the browser map settings.
func GetMapConfig() MapConfig {
	return MapConfig{
		StyleURL: viper.GetString("map.styleUrl"),
		Lng:      viper.GetFloat64("map.lng"),
		Lat:      viper.GetFloat64("map.lat"),
		Zoom:     viper.GetFloat64("map.zoom"),
	}
}

// GetStyleConfig returns the line styles.
func GetStyleConfig() (StyleConfig, error) {
	var sc StyleConfig
	if err := viper.UnmarshalKey("style", &sc); err != nil {
		return StyleConfig{}, fmt.Errorf("error decoding style config: %w", err)
	}
	return sc, nil
}

// GetLabelConfig returns the creation label format.
func GetLabelConfig() LabelConfig {
	return LabelConfig{
		Prefix: viper.GetString("label.prefix"),
		Layout: viper.GetString("label.layout"),
	}
}

// GetInfluxConfig returns the usage metrics sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
