package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// Duration is a time.Duration read from human-readable strings such as
// "5s", "1m" or "1h30m". A quoted integer is taken as milliseconds.
// A value of "0" means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for stackboxd.
// Loaded from ~/.config/stackbox/stackboxd.toml
type DaemonConfig struct {
	Display  DisplayConfig    `toml:"display"`
	Timing   TimingConfig     `toml:"timing"`
	Colors   ColorsConfig     `toml:"colors"`
	Audio    AudioConfig      `toml:"audio"`
	Theme    ThemeConfig      `toml:"theme"`
	Behavior BehaviorConfig   `toml:"behavior"`
	Schedule []ScheduleEntry  `toml:"schedule"`
	History  HistoryRetention `toml:"history"`
	Tracing  TracingConfig    `toml:"tracing"`
}

// DisplayConfig places the widget columns on screen.
type DisplayConfig struct {
	Position      string  `toml:"position"`       // corner of the big and small box columns
	OffsetX       int     `toml:"offset_x"`       // pixels from the screen edge
	OffsetY       int     `toml:"offset_y"`       // pixels from the screen edge
	SmallWidth    int     `toml:"small_width"`    // small box width
	BigWidth      int     `toml:"big_width"`      // big box width
	MessageWidth  int     `toml:"message_width"`  // message box width
	TopMargin     int     `toml:"top_margin"`     // offset of the first small box
	Gap           int     `toml:"gap"`            // gap between stacked small boxes
	DefaultHeight int     `toml:"default_height"` // assumed until a box reports its height
	Monitor       int     `toml:"monitor"`        // 0 = focused, 1+ = specific monitor
	Opacity       float64 `toml:"opacity"`        // 0.0-1.0 background opacity
}

// TimingConfig holds the animation, color cycle and timeout durations.
// A box timeout of "0" keeps boxes until they are dismissed.
type TimingConfig struct {
	Animation  Duration `toml:"animation"`
	ColorCycle Duration `toml:"color_cycle"`
	SmallBox   Duration `toml:"small_box"`
	BigBox     Duration `toml:"big_box"`
}

// ColorsConfig holds per-kind defaults.
type ColorsConfig struct {
	SmallBox   string `toml:"small_box"`
	BigBox     string `toml:"big_box"`
	BigBoxIcon string `toml:"big_box_icon"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Prefer  string      `toml:"prefer"` // "ogg" or "mp3"
	Dir     string      `toml:"dir"`    // directory searched for <kind>.<ext>
	Sounds  SoundConfig `toml:"sounds"`
	// RateLimit is the sustained number of sounds per second; Burst is how
	// many may play back to back.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// SoundConfig holds explicit per-kind sound files. Empty entries fall back
// to <dir>/<kind>.<prefer>.
type SoundConfig struct {
	MessageBox string `toml:"messagebox"`
	BigBox     string `toml:"bigbox"`
	SmallBox   string `toml:"smallbox"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// BehaviorConfig contains behavior settings.
type BehaviorConfig struct {
	// Sound plays creation sounds unless a request is silent.
	Sound bool `toml:"sound"`
	// InternalNotices shows daemon problems (e.g. a bad config reload)
	// as small boxes.
	InternalNotices bool `toml:"internal_notices"`
	// NoticeColor is the color of internal notices.
	NoticeColor string `toml:"notice_color"`
}

// ScheduleEntry raises a widget on a cron schedule.
type ScheduleEntry struct {
	Name    string   `toml:"name"`
	Spec    string   `toml:"spec"` // standard cron spec or @every/@hourly descriptor
	Kind    string   `toml:"kind"`
	Title   string   `toml:"title"`
	Content string   `toml:"content"`
	Icon    string   `toml:"icon"`
	Color   string   `toml:"color"`
	Timeout Duration `toml:"timeout"`
	Buttons []string `toml:"buttons"`
	Silent  bool     `toml:"silent"`
}

// HistoryRetention controls history retention in the daemon.
type HistoryRetention struct {
	Enabled bool     `toml:"enabled"`
	MaxAge  Duration `toml:"max_age"`  // 0 = keep forever
	Keep    int      `toml:"keep"`     // 0 = unlimited
	Prune   string   `toml:"schedule"` // cron spec for pruning
}

// TracingConfig enables OTLP spans for widget lifetimes.
type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"` // host:port of an OTLP/HTTP collector
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Position is the screen corner holding the box columns.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionBottomLeft,
		PositionBottomRight,
	}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	core := notify.DefaultConfig()
	return &DaemonConfig{
		Display: DisplayConfig{
			Position:      string(PositionTopRight),
			OffsetX:       20,
			OffsetY:       20,
			SmallWidth:    350,
			BigWidth:      400,
			MessageWidth:  480,
			TopMargin:     core.TopMargin,
			Gap:           core.Gap,
			DefaultHeight: core.DefaultHeight,
			Opacity:       1.0,
		},
		Timing: TimingConfig{
			Animation:  Duration(core.AnimationDuration),
			ColorCycle: Duration(core.ColorCyclePeriod),
			SmallBox:   Duration(5 * time.Second),
			BigBox:     Duration(0),
		},
		Colors: ColorsConfig{
			SmallBox:   core.SmallBoxColor,
			BigBox:     core.BigBoxColor,
			BigBoxIcon: core.BigBoxIcon,
		},
		Audio: AudioConfig{
			Enabled:   true,
			Volume:    80,
			Prefer:    "ogg",
			RateLimit: 2,
			Burst:     3,
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
		Behavior: BehaviorConfig{
			Sound:           core.Sound,
			InternalNotices: true,
			NoticeColor:     "#c0392b",
		},
		History: HistoryRetention{
			Enabled: true,
			MaxAge:  Duration(30 * 24 * time.Hour),
			Keep:    5000,
			Prune:   "@hourly",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "stackboxd",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	if dir := configDir(); dir != "" {
		return filepath.Join(dir, "stackboxd.toml"), nil
	}
	userDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userDir, "stackbox", "stackboxd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads and validates the daemon configuration at path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes config to path atomically.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate implements validation.Validatable.
func (c *DaemonConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Display),
		validation.Field(&c.Timing),
		validation.Field(&c.Colors),
		validation.Field(&c.Audio),
		validation.Field(&c.Theme),
		validation.Field(&c.Behavior),
		validation.Field(&c.Schedule),
		validation.Field(&c.History),
	)
}

// Validate implements validation.Validatable.
func (d DisplayConfig) Validate() error {
	positions := make([]any, 0, len(ValidPositions()))
	for _, p := range ValidPositions() {
		positions = append(positions, string(p))
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Position, validation.Required, validation.In(positions...)),
		validation.Field(&d.SmallWidth, validation.Min(100), validation.Max(1000)),
		validation.Field(&d.BigWidth, validation.Min(100), validation.Max(1000)),
		validation.Field(&d.MessageWidth, validation.Min(100), validation.Max(1600)),
		validation.Field(&d.TopMargin, validation.Min(0)),
		validation.Field(&d.Gap, validation.Min(0)),
		validation.Field(&d.DefaultHeight, validation.Min(0)),
		validation.Field(&d.Monitor, validation.Min(0)),
		validation.Field(&d.Opacity, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Validate implements validation.Validatable.
func (t TimingConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Animation, validation.Min(Duration(0))),
		validation.Field(&t.ColorCycle, validation.Required, validation.Min(Duration(time.Millisecond))),
		validation.Field(&t.SmallBox, validation.Min(Duration(0))),
		validation.Field(&t.BigBox, validation.Min(Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (c ColorsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SmallBox, validation.Required),
		validation.Field(&c.BigBox, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (a AudioConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Volume, validation.Min(0), validation.Max(100)),
		validation.Field(&a.Prefer, validation.In("ogg", "mp3")),
		validation.Field(&a.RateLimit, validation.Min(0.0)),
		validation.Field(&a.Burst, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (t ThemeConfig) Validate() error {
	schemes := make([]any, 0, len(ValidColorSchemes()))
	for _, s := range ValidColorSchemes() {
		schemes = append(schemes, string(s))
	}
	return validation.ValidateStruct(&t,
		validation.Field(&t.ColorScheme, validation.In(schemes...)),
	)
}

// Validate implements validation.Validatable.
func (b BehaviorConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.NoticeColor, validation.When(b.InternalNotices, validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (e ScheduleEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Spec, validation.Required, validation.By(cronSpec)),
		validation.Field(&e.Kind, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" {
				_, err := notify.ParseKind(s)
				return err
			}
			return nil
		})),
		validation.Field(&e.Timeout, validation.Min(Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (h HistoryRetention) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.MaxAge, validation.Min(Duration(0))),
		validation.Field(&h.Keep, validation.Min(0)),
		validation.Field(&h.Prune, validation.When(h.Enabled, validation.Required, validation.By(cronSpec))),
	)
}

func cronSpec(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid cron spec: %w", err)
	}
	return nil
}

// ToNotify returns the widget manager configuration.
func (c *DaemonConfig) ToNotify() notify.Config {
	return notify.Config{
		TopMargin:         c.Display.TopMargin,
		Gap:               c.Display.Gap,
		DefaultHeight:     c.Display.DefaultHeight,
		AnimationDuration: c.Timing.Animation.Duration(),
		ColorCyclePeriod:  c.Timing.ColorCycle.Duration(),
		SmallBoxColor:     c.Colors.SmallBox,
		BigBoxColor:       c.Colors.BigBox,
		BigBoxIcon:        c.Colors.BigBoxIcon,
		SmallBoxTimeout:   c.Timing.SmallBox.Duration(),
		BigBoxTimeout:     c.Timing.BigBox.Duration(),
		Sound:             c.Behavior.Sound,
	}
}

// Request builds the widget request of a schedule entry.
// The kind defaults to a small box.
func (e ScheduleEntry) Request() (notify.Request, error) {
	kind := notify.KindSmallBox
	if e.Kind != "" {
		parsed, err := notify.ParseKind(e.Kind)
		if err != nil {
			return notify.Request{}, err
		}
		kind = parsed
	}
	return notify.Request{
		Kind:    kind,
		Title:   e.Title,
		Content: e.Content,
		Icon:    e.Icon,
		Color:   e.Color,
		Timeout: e.Timeout.Duration(),
		Buttons: append([]string(nil), e.Buttons...),
		Silent:  e.Silent,
	}, nil
}

// SoundFor returns the sound file for kind. An explicit entry wins;
// otherwise <dir>/<kind name>.<prefer> is returned, or "" without a dir.
// Expands ~ to the home directory.
func (c *DaemonConfig) SoundFor(kind notify.Kind) string {
	var path, name string
	switch kind {
	case notify.KindMessageBox:
		path, name = c.Audio.Sounds.MessageBox, "messagebox"
	case notify.KindBigBox:
		path, name = c.Audio.Sounds.BigBox, "bigbox"
	default:
		path, name = c.Audio.Sounds.SmallBox, "smallbox"
	}
	if path == "" && c.Audio.Dir != "" {
		prefer := c.Audio.Prefer
		if prefer == "" {
			prefer = "ogg"
		}
		path = filepath.Join(c.Audio.Dir, name+"."+prefer)
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
