package config

import (
	"errors"
	"os"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"
)

type (
	Config struct {
		Signaler Signaler
		Version  int `fig:"version" default:"0"`
	}
	Signaler struct {
		Debug      bool
		Server     Server
		Monitoring Monitoring
		// Origin restricts the websocket upgrade to one origin, * allows any.
		Origin string `fig:"origin" default:"*"`
		Rooms  Rooms
	}
	Server struct {
		Address string `fig:"address" default:":3002"`
		Https   bool
		Tls     Tls
	}
	Tls struct {
		Address   string `fig:"address" default:":443"`
		Domain    string
		HttpsCert string
		HttpsKey  string
	}
	Monitoring struct {
		Port             int    `fig:"port" default:"6601"`
		URLPrefix        string `fig:"url_prefix" default:"/signaler"`
		MetricEnabled    bool   `fig:"metric_enabled"`
		ProfilingEnabled bool   `fig:"profiling_enabled"`
	}
	Rooms struct {
		// MaxParticipants caps one room size, 0 means no limit.
		MaxParticipants int
		// EchoChat sends chat messages back to their sender with
		// the rest of the room.
		EchoChat bool `fig:"echo_chat" default:"true"`
	}
)

func (m Monitoring) IsEnabled() bool { return m.MetricEnabled || m.ProfilingEnabled }

const EnvPrefix = "HUDDLE"

// allows custom config path
var configPath string

// NewConfig loads the config file from the default search dirs or the -c path.
// Runs without a file when none is found.
// Environment variables with the HUDDLE_ prefix override file params,
// the params should be in uppercase separated with _.
func NewConfig() (conf Config) {
	dirs := []string{configPath}
	if configPath == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.huddle")
		}
	}
	err := fig.Load(&conf, fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if err != nil && errors.Is(err, fig.ErrFileNotFound) {
		err = fig.Load(&conf, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		panic(err)
	}
	return
}

func (c *Config) AddFlags(fs *pflag.FlagSet) *Config {
	fs.StringVarP(&c.Signaler.Server.Address, "address", "a", c.Signaler.Server.Address, "Signaling server address")
	fs.BoolVarP(&c.Signaler.Debug, "debug", "d", c.Signaler.Debug, "Enable debug logging")
	fs.IntVarP(&c.Signaler.Monitoring.Port, "monitoring.port", "", c.Signaler.Monitoring.Port, "Monitoring server port")
	fs.StringVarP(&configPath, "conf", "c", configPath, "Set custom configuration file path")
	return c
}
