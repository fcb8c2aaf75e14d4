// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is constructed once
// at startup and passed explicitly into each component; nothing mutates it
// afterwards.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	Upload  UploadConfig  `mapstructure:"upload" yaml:"upload"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the chromedp session is obtained.
type BrowserConfig struct {
	// AttachURL is a DevTools websocket/HTTP URL of an already-running
	// browser. Empty means launch a browser ourselves.
	AttachURL string   `mapstructure:"attach_url" yaml:"attach_url"`
	Headless  bool     `mapstructure:"headless" yaml:"headless"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args      []string `mapstructure:"args" yaml:"args"`
	// NavigationTimeout bounds the initial navigation to the target app.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// BridgeConfig controls the HTTP request/response bridge.
type BridgeConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// UploadConfig carries every knob of the upload pipeline: environment
// markers, candidate sets, classifier markers, and safety timeouts.
// Alternate values are injected in tests; production values come from
// defaults, the config file, or CHATDROP_* env vars.
type UploadConfig struct {
	// HostMarker must appear in the document location for a run to start.
	HostMarker string `mapstructure:"host_marker" yaml:"host_marker"`
	// ChatMarkers are XPath expressions; at least one must match the
	// document snapshot for the environment to count as having an active
	// conversation.
	ChatMarkers []string `mapstructure:"chat_markers" yaml:"chat_markers"`

	// SurfaceCandidates are CSS selectors for the drop surface, tried in
	// order; first existing match wins.
	SurfaceCandidates []string `mapstructure:"surface_candidates" yaml:"surface_candidates"`
	// RefinedTargetSelector is the narrower drop indicator that may appear
	// after dragenter. Waiting for it is best-effort.
	RefinedTargetSelector string `mapstructure:"refined_target_selector" yaml:"refined_target_selector"`
	// DialogSelector identifies the attachment confirmation overlay.
	DialogSelector string `mapstructure:"dialog_selector" yaml:"dialog_selector"`

	// SendControlText is matched exactly, case-insensitively, against
	// visible control text.
	SendControlText string `mapstructure:"send_control_text" yaml:"send_control_text"`
	// PrimaryMarkers tag a control as primary/affirmative when any appears
	// among its class names.
	PrimaryMarkers []string `mapstructure:"primary_markers" yaml:"primary_markers"`
	// GenericMarkers tag a control as a plain button.
	GenericMarkers []string `mapstructure:"generic_markers" yaml:"generic_markers"`

	// HoverEventCount is the number of dragover events emulating a
	// sustained hover before the drop.
	HoverEventCount int `mapstructure:"hover_event_count" yaml:"hover_event_count"`
	// HoverInterval spaces the dragover events.
	HoverInterval time.Duration `mapstructure:"hover_interval" yaml:"hover_interval"`

	// PollInterval paces condition polling waits.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// RefinedTargetTimeout bounds the best-effort refined-target wait.
	RefinedTargetTimeout time.Duration `mapstructure:"refined_target_timeout" yaml:"refined_target_timeout"`
	// ConfirmTimeout bounds the wait for the confirmation overlay; timing
	// out here means the drop was not accepted.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
	// ControlTimeout bounds the wait for a matching send control.
	ControlTimeout time.Duration `mapstructure:"control_timeout" yaml:"control_timeout"`
	// CloseTimeout bounds the best-effort wait for the overlay to close
	// after activation.
	CloseTimeout time.Duration `mapstructure:"close_timeout" yaml:"close_timeout"`

	// MaxPayloadBytes rejects oversized file content before materialization.
	MaxPayloadBytes int `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
}

// Load builds the configuration from defaults, an optional config file, and
// CHATDROP_* environment variables, then validates it.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.chatdrop")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("CHATDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "chatdrop")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.attach_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Bridge --
	v.SetDefault("bridge.listen_addr", "127.0.0.1:18420")
	v.SetDefault("bridge.shutdown_timeout", "10s")

	// -- Upload --
	v.SetDefault("upload.host_marker", "web.whatsapp.com")
	v.SetDefault("upload.chat_markers", []string{
		`//*[@id='main']//footer`,
		`//div[@data-testid='conversation-panel-body']`,
	})
	v.SetDefault("upload.surface_candidates", []string{
		"#main footer .copyable-area",
		"#main footer",
		"#main",
	})
	v.SetDefault("upload.refined_target_selector", `[data-testid='drag-drop-active']`)
	v.SetDefault("upload.dialog_selector", `div[data-animate-modal-body='true']`)
	v.SetDefault("upload.send_control_text", "Send")
	v.SetDefault("upload.primary_markers", []string{"primary"})
	v.SetDefault("upload.generic_markers", []string{"button"})
	v.SetDefault("upload.hover_event_count", 3)
	v.SetDefault("upload.hover_interval", "50ms")
	v.SetDefault("upload.poll_interval", "100ms")
	v.SetDefault("upload.refined_target_timeout", "2s")
	v.SetDefault("upload.confirm_timeout", "10s")
	v.SetDefault("upload.control_timeout", "10s")
	v.SetDefault("upload.close_timeout", "5s")
	v.SetDefault("upload.max_payload_bytes", 64<<20)
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	u := c.Upload
	if u.HostMarker == "" {
		return fmt.Errorf("upload.host_marker must not be empty")
	}
	if len(u.SurfaceCandidates) == 0 {
		return fmt.Errorf("upload.surface_candidates must list at least one selector")
	}
	if u.SendControlText == "" {
		return fmt.Errorf("upload.send_control_text must not be empty")
	}
	if u.HoverEventCount < 1 {
		return fmt.Errorf("upload.hover_event_count must be >= 1, got %d", u.HoverEventCount)
	}
	if u.HoverInterval <= 0 {
		return fmt.Errorf("upload.hover_interval must be > 0")
	}
	if u.PollInterval <= 0 {
		return fmt.Errorf("upload.poll_interval must be > 0")
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"upload.refined_target_timeout", u.RefinedTargetTimeout},
		{"upload.confirm_timeout", u.ConfirmTimeout},
		{"upload.control_timeout", u.ControlTimeout},
		{"upload.close_timeout", u.CloseTimeout},
	} {
		if d.val <= 0 {
			return fmt.Errorf("%s must be > 0", d.name)
		}
	}
	if u.MaxPayloadBytes <= 0 {
		return fmt.Errorf("upload.max_payload_bytes must be > 0")
	}
	return nil
}
