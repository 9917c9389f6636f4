package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "address": "127.0.0.1:9000" },
		"label": { "prefix": "Drawn " }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "127.0.0.1:9000", viper.GetString("server.address"))
	assert.Equal(t, "Drawn ", viper.GetString("label.prefix"))
	assert.Equal(t, "02.01.2006", viper.GetString("label.layout"))
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("MAPDRAW_SERVER_ADDRESS", "0.0.0.0:9100")

	dir := writeConfig(t, `{ "server": { "address": "127.0.0.1:9000" } }`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "0.0.0.0:9100", GetServerConfig().Address)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, ":8080", viper.GetString("server.address"))
	assert.Equal(t, 256, viper.GetInt("server.sendBuffer"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "mapdraw", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetServerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"server": { "writeTimeout": "3s", "allowedOrigins": ["https://maps.example.org"] }
	}`)))

	sc := GetServerConfig()
	assert.Equal(t, ":8080", sc.Address)
	assert.Equal(t, 60*time.Second, sc.ReadTimeout)
	assert.Equal(t, 3*time.Second, sc.WriteTimeout)
	assert.Equal(t, []string{"https://maps.example.org"}, sc.AllowedOrigins)
	assert.Equal(t, int64(64*1024), sc.MaxMessageBytes)
}

func TestGetMapConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{ "map": { "lng": 13.4, "lat": 52.5 } }`)))

	mc := GetMapConfig()
	assert.Equal(t, "https://demotiles.maplibre.org/style.json", mc.StyleURL)
	assert.Equal(t, 13.4, mc.Lng)
	assert.Equal(t, 52.5, mc.Lat)
	assert.Equal(t, 2.0, mc.Zoom)
}

func TestGetStyleConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	sc, err := GetStyleConfig()
	require.NoError(t, err)
	assert.Equal(t, "#FFBF00", sc.Draft.Color)
	assert.Equal(t, 6.0, sc.Draft.Width)
	assert.Equal(t, []float64{3, 2}, sc.Draft.Dash)
	assert.Equal(t, "#808080", sc.Final.Color)
	assert.Empty(t, sc.Final.Dash)
}

func TestGetStyleConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"style": { "draft": { "color": "#ff0000", "width": 4, "dash": [1, 1] } }
	}`)))

	sc, err := GetStyleConfig()
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", sc.Draft.Color)
	assert.Equal(t, 4.0, sc.Draft.Width)
	assert.Equal(t, []float64{1, 1}, sc.Draft.Dash)
	assert.Equal(t, "#808080", sc.Final.Color)
}

func TestGetLabelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	lc := GetLabelConfig()
	assert.Equal(t, "Created: ", lc.Prefix)
	assert.Equal(t, "02.01.2006", lc.Layout)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "host": "influx", "protocol": "https" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https://influx:8086", ic.URL())
	assert.Equal(t, "mapdraw", ic.Org)
}

func TestGetGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{ "graylog": { "enabled": true, "address": "gl:12201" } }`)))

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "gl:12201", gc.Address)
}

func TestGetMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetMonitorConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Empty(t, cfg.StatusFile)

	viper.Set("monitor.statusFile", "status.json")
	assert.Equal(t, "status.json", GetMonitorConfig().StatusFile)
}
