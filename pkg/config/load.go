package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/martinhoefling/goxkcdpwgen/xkcdpwgen"
	"github.com/spf13/viper"
)

const defconfPath = "mapnav.json"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultPath is where the config lives unless told otherwise by
// MAPNAV_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("MAPNAV_CONFIG"); p != "" {
		return p
	}
	return defconfPath
}

// Load reads the config at path, lets MAPNAV_* environment variables
// override it, and fills in anything required that is missing.  A
// missing file is not an error; the defaults are used and written
// out.
func Load(l hclog.Logger, path string) (*Config, error) {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	c := &Config{l: l.Named("config"), path: path}

	v := newViper()
	v.SetConfigFile(path)
	fresh := false
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &nf) {
			return nil, err
		}
		c.l.Info("No config file, using defaults", "path", path)
		fresh = true
	}

	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.l.Debug("config loaded", "path", path)

	if c.populateRequiredElements() || fresh {
		if err := c.Save(); err != nil {
			c.l.Warn("Required elements were populated but could not be saved!", "error", err)
		} else {
			c.l.Info("Required configuration elements initialized")
		}
	}
	return c, c.Validate()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("robot.url", "ws://127.0.0.1:9090")
	v.SetDefault("robot.dialtimeout", "5s")
	v.SetDefault("robot.servicesservice", "/rosapi/services")
	v.SetDefault("mapstore.listservice", "list_last_maps")
	v.SetDefault("mapstore.publishservice", "publish_map")
	v.SetDefault("mapstore.waitattempts", 20)
	v.SetDefault("mapstore.waitinterval", "1s")
	v.SetDefault("mapstore.calltimeout", "30s")
	v.SetDefault("mapstore.timezone", "Local")
	v.SetDefault("pose.posetopic", "/initialpose")
	v.SetDefault("pose.goaltopic", "/move_base_simple/goal")
	v.SetDefault("pose.frame", "map")
	v.SetDefault("web.bind", ":8080")
	v.SetDefault("web.publicurl", "")
	v.SetDefault("web.accessphrase", "")
	v.SetDefault("display.workers", 4)
	v.SetDefault("display.watchdogtimeout", "10s")
	v.SetDefault("display.mapwait", "15s")

	v.SetConfigType("json")
	v.SetEnvPrefix("MAPNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Save persists a config to the path it was loaded from, creating it
// if necessary.
func (c *Config) Save() error {
	return c.SaveAs(c.path)
}

// SaveAs persists a config to the named path.
func (c *Config) SaveAs(path string) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("robot.url", c.Robot.URL)
	v.Set("robot.dialtimeout", c.Robot.DialTimeout.String())
	v.Set("robot.servicesservice", c.Robot.ServicesService)
	v.Set("mapstore.listservice", c.MapStore.ListService)
	v.Set("mapstore.publishservice", c.MapStore.PublishService)
	v.Set("mapstore.waitattempts", c.MapStore.WaitAttempts)
	v.Set("mapstore.waitinterval", c.MapStore.WaitInterval.String())
	v.Set("mapstore.calltimeout", c.MapStore.CallTimeout.String())
	v.Set("mapstore.timezone", c.MapStore.Timezone)
	v.Set("pose.posetopic", c.Pose.PoseTopic)
	v.Set("pose.goaltopic", c.Pose.GoalTopic)
	v.Set("pose.frame", c.Pose.Frame)
	v.Set("web.bind", c.Web.Bind)
	v.Set("web.publicurl", c.Web.PublicURL)
	v.Set("web.accessphrase", c.Web.AccessPhrase)
	v.Set("display.workers", c.Display.Workers)
	v.Set("display.watchdogtimeout", c.Display.WatchdogTimeout.String())
	v.Set("display.mapwait", c.Display.MapWait.String())

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path is where this config is saved.
func (c *Config) Path() string { return c.path }

// Validate checks the values that would otherwise fail much later and
// much less clearly.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Robot.URL)
	if err != nil {
		return fmt.Errorf("%w: robot url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: robot url must be ws:// or wss://, got %q", ErrInvalid, c.Robot.URL)
	}
	if c.MapStore.WaitAttempts < 1 {
		return fmt.Errorf("%w: mapstore.waitattempts must be at least 1", ErrInvalid)
	}
	if c.MapStore.WaitInterval <= 0 {
		return fmt.Errorf("%w: mapstore.waitinterval must be positive", ErrInvalid)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: mapstore.timezone: %v", ErrInvalid, err)
	}
	if _, _, err := net.SplitHostPort(c.Web.Bind); err != nil {
		return fmt.Errorf("%w: web.bind: %v", ErrInvalid, err)
	}
	return nil
}

// Location is the timezone map timestamps are shown in.
func (c *Config) Location() (*time.Location, error) {
	if c.MapStore.Timezone == "" || c.MapStore.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.MapStore.Timezone)
}

// OperatorURL is the address the phone should open.
func (c *Config) OperatorURL() string {
	if c.Web.PublicURL != "" {
		return c.Web.PublicURL
	}
	host, port, err := net.SplitHostPort(c.Web.Bind)
	if err != nil {
		return "http://" + c.Web.Bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		if h, err := os.Hostname(); err == nil {
			host = h
		} else {
			host = "localhost"
		}
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Fills in certain elements that should never be null under any
// circumstances.
func (c *Config) populateRequiredElements() bool {
	needSave := false

	if c.Web.AccessPhrase == "" {
		xkcd := xkcdpwgen.NewGenerator()
		xkcd.SetNumWords(3)
		xkcd.SetCapitalize(true)
		xkcd.SetDelimiter("")
		c.Web.AccessPhrase = xkcd.GeneratePasswordString()
		needSave = true
	}

	if c.Display.Workers < 1 {
		c.Display.Workers = 4
		needSave = true
	}
	return needSave
}
