package gopointer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/edaniels/gopointer/transport"
)

// EnvPrefix prefixes environment variables that override config file keys,
// e.g. POINTERCAST_WATCHER_CURSOR_SCALE.
const EnvPrefix = "POINTERCAST"

// DefaultWatcherConfig returns the settings a watcher uses unless told
// otherwise.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		QueueSize:          transport.DefaultQueueSize,
		TickInterval:       10 * time.Millisecond,
		PeerIdleTimeout:    5 * time.Second,
		CursorScale:        1,
		MaxMessagesPerStep: 64,
	}
}

// DefaultHolderConfig returns the settings a holder uses unless told
// otherwise.
func DefaultHolderConfig() HolderConfig {
	return HolderConfig{
		PoseRate:  60,
		KeepAlive: time.Second,
	}
}

// Transport kinds.
const (
	TransportWebRTC    = "webrtc"
	TransportWebsocket = "websocket"
)

// A Config is everything the pointercast command can be configured with
// from a file or the environment.
type Config struct {
	Host      string
	Ports     []int
	Transport string
	Debug     bool

	Watcher WatcherSettings
	Holder  HolderSettings
}

// WatcherSettings are the file level watcher settings.
type WatcherSettings struct {
	Headless        bool
	Advertise       bool
	QueueSize       int
	TickInterval    time.Duration
	PeerIdleTimeout time.Duration
	CursorScale     float32
}

// HolderSettings are the file level holder settings.
type HolderSettings struct {
	// Watchers are host:port addresses of watchers to connect to.
	Watchers  []string
	Discover  bool
	Cursor    string
	Animation string
	PoseRate  float64
	KeepAlive time.Duration
}

func setDefaults(v *viper.Viper) {
	wd := DefaultWatcherConfig()
	hd := DefaultHolderConfig()
	v.SetDefault("host", "")
	v.SetDefault("ports", transport.DefaultPorts)
	v.SetDefault("transport", TransportWebRTC)
	v.SetDefault("debug", false)
	v.SetDefault("watcher.headless", false)
	v.SetDefault("watcher.advertise", true)
	v.SetDefault("watcher.queue_size", wd.QueueSize)
	v.SetDefault("watcher.tick_interval", wd.TickInterval)
	v.SetDefault("watcher.peer_idle_timeout", wd.PeerIdleTimeout)
	v.SetDefault("watcher.cursor_scale", wd.CursorScale)
	v.SetDefault("holder.watchers", []string{})
	v.SetDefault("holder.discover", false)
	v.SetDefault("holder.cursor", "")
	v.SetDefault("holder.animation", "")
	v.SetDefault("holder.pose_rate", hd.PoseRate)
	v.SetDefault("holder.keep_alive", hd.KeepAlive)
}

// LoadConfig reads the config file at path, if any, and applies
// environment overrides. Any format viper knows (TOML, JSON, YAML) works.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "error reading config %q", path)
		}
	}

	config := Config{
		Host:      v.GetString("host"),
		Ports:     v.GetIntSlice("ports"),
		Transport: strings.ToLower(v.GetString("transport")),
		Debug:     v.GetBool("debug"),
		Watcher: WatcherSettings{
			Headless:        v.GetBool("watcher.headless"),
			Advertise:       v.GetBool("watcher.advertise"),
			QueueSize:       v.GetInt("watcher.queue_size"),
			TickInterval:    v.GetDuration("watcher.tick_interval"),
			PeerIdleTimeout: v.GetDuration("watcher.peer_idle_timeout"),
			CursorScale:     float32(v.GetFloat64("watcher.cursor_scale")),
		},
		Holder: HolderSettings{
			Watchers:  v.GetStringSlice("holder.watchers"),
			Discover:  v.GetBool("holder.discover"),
			Cursor:    v.GetString("holder.cursor"),
			Animation: v.GetString("holder.animation"),
			PoseRate:  v.GetFloat64("holder.pose_rate"),
			KeepAlive: v.GetDuration("holder.keep_alive"),
		},
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportWebRTC, TransportWebsocket:
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}
	if len(c.Ports) == 0 {
		return errors.New("at least one port is required")
	}
	if c.Watcher.CursorScale < 0 {
		return errors.Errorf("cursor scale must not be negative but is %v", c.Watcher.CursorScale)
	}
	return nil
}

// WatcherConfig turns the file settings into a WatcherConfig.
func (c Config) WatcherConfig() WatcherConfig {
	config := DefaultWatcherConfig()
	if c.Watcher.QueueSize > 0 {
		config.QueueSize = c.Watcher.QueueSize
	}
	if c.Watcher.TickInterval > 0 {
		config.TickInterval = c.Watcher.TickInterval
	}
	config.PeerIdleTimeout = c.Watcher.PeerIdleTimeout
	if c.Watcher.CursorScale > 0 {
		config.CursorScale = c.Watcher.CursorScale
	}
	return config
}

// HolderConfig turns the file settings into a HolderConfig, loading the
// cursor and animation files it names.
func (c Config) HolderConfig() (HolderConfig, error) {
	config := DefaultHolderConfig()
	if c.Holder.PoseRate > 0 {
		config.PoseRate = c.Holder.PoseRate
	}
	if c.Holder.KeepAlive > 0 {
		config.KeepAlive = c.Holder.KeepAlive
	}
	if c.Holder.Cursor != "" {
		data, err := LoadCursorFile(c.Holder.Cursor)
		if err != nil {
			return HolderConfig{}, err
		}
		config.CursorImage = data
	}
	if c.Holder.Animation != "" {
		as, err := LoadAnimationSet(c.Holder.Animation)
		if err != nil {
			return HolderConfig{}, err
		}
		config.AnimationSet = &as
	}
	return config, nil
}

// LoadAnimationSet reads an animation set from a .toml file or, for any
// other extension, a JSON file. Missing tracks get the default track.
func LoadAnimationSet(path string) (AnimationSet, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return AnimationSet{}, err
	}
	var as AnimationSet
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &as)
	} else {
		err = json.Unmarshal(data, &as)
	}
	if err != nil {
		return AnimationSet{}, errors.Wrapf(err, "error parsing animation set %q", path)
	}
	as = as.withDefaults()
	if err := as.Validate(); err != nil {
		return AnimationSet{}, errors.Wrapf(err, "invalid animation set %q", path)
	}
	return as, nil
}

// LoadCursorFile reads an encoded cursor strip and checks that it fits in
// one message and decodes to valid dimensions.
func LoadCursorFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateCursorFileSize(int(info.Size())); err != nil {
		return nil, errors.Wrapf(err, "invalid cursor %q", path)
	}
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := DecodeCursorImage(data); err != nil {
		return nil, errors.Wrapf(err, "invalid cursor %q", path)
	}
	return data, nil
}
