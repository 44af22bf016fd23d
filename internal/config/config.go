package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the production search service.
const DefaultBaseURL = "https://vsearch.knileshh.com"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	Search   SearchConfig   `mapstructure:"search"`
	Demos    []DemoImage    `mapstructure:"demos"`
	Database DatabaseConfig `mapstructure:"database"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type PreviewConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Debounce      time.Duration `mapstructure:"debounce"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
}

type SearchConfig struct {
	DefaultThreshold   int `mapstructure:"default_threshold"`
	DefaultResultCount int `mapstructure:"default_result_count"`
}

// DemoImage is a built-in query image. ID is the stable identifier the
// UI selects by; URL is what the search service is asked to fetch.
type DemoImage struct {
	ID    string `mapstructure:"id"`
	Label string `mapstructure:"label"`
	URL   string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Path         string        `mapstructure:"path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SearchIndex  string        `mapstructure:"search_index"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

type UIConfig struct {
	Colors      UIColors      `mapstructure:"colors"`
	ShowNotice  bool          `mapstructure:"show_notice"`
	NoticeDelay time.Duration `mapstructure:"notice_delay"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type MediaConfig struct {
	Darwin        MediaPlayers `mapstructure:"darwin"`
	Linux         MediaPlayers `mapstructure:"linux"`
	Windows       MediaPlayers `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaPlayers struct {
	Image []string `mapstructure:"image"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit          string `mapstructure:"quit"`
	UploadMode    string `mapstructure:"upload_mode"`
	URLMode       string `mapstructure:"url_mode"`
	DemoMode      string `mapstructure:"demo_mode"`
	History       string `mapstructure:"history"`
	Find          string `mapstructure:"find"`
	OpenImage     string `mapstructure:"open_image"`
	ThresholdUp   string `mapstructure:"threshold_up"`
	ThresholdDown string `mapstructure:"threshold_down"`
	CountUp       string `mapstructure:"count_up"`
	CountDown     string `mapstructure:"count_down"`
	Browse        string `mapstructure:"browse"`
	Delete        string `mapstructure:"delete"`
	Back          string `mapstructure:"back"`
	Help          string `mapstructure:"help"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultDemos mirrors the demo images offered by the web front-end.
func DefaultDemos() []DemoImage {
	return []DemoImage{
		{ID: "demo/sneakers.jpg", Label: "Sneakers", URL: "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=400&h=400&fit=crop"},
		{ID: "demo/handbag.jpg", Label: "Handbag", URL: "https://images.unsplash.com/photo-1548036328-c9fa89d128fa?w=400&h=400&fit=crop"},
		{ID: "demo/scarf.jpg", Label: "Scarf", URL: "https://images.unsplash.com/photo-1601924994987-69e26d50dc26?w=400&h=400&fit=crop"},
		{ID: "demo/watch.jpg", Label: "Watch", URL: "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=400&h=400&fit=crop"},
	}
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:           DefaultBaseURL,
			Timeout:           30 * time.Second,
			UserAgent:         "vsearch/1.0 (https://github.com/pders01/vsearch)",
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Preview: PreviewConfig{
			Timeout:       10 * time.Second,
			Debounce:      300 * time.Millisecond,
			MaxImageBytes: 10 * 1024 * 1024,
		},
		Search: SearchConfig{
			DefaultThreshold:   30,
			DefaultResultCount: 20,
		},
		Demos: DefaultDemos(),
		Database: DatabaseConfig{
			Path:         filepath.Join(homeDir, ".vsearch.db"),
			Timeout:      1 * time.Second,
			SearchIndex:  filepath.Join(homeDir, ".vsearch", "index.bleve"),
			HistoryLimit: 100,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#8B5CF6",
				Secondary:  "#3B82F6",
				Accent:     "#22D3EE",
				Background: "#0A0E27",
				Surface:    "#151937",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			ShowNotice:  true,
			NoticeDelay: 5 * time.Second,
		},
		Media: MediaConfig{
			Darwin:        MediaPlayers{Image: []string{"preview", "open"}},
			Linux:         MediaPlayers{Image: []string{"sxiv", "feh", "eog", "xdg-open"}},
			Windows:       MediaPlayers{Image: []string{"start"}},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:          "q",
				UploadMode:    "u",
				URLMode:       "l",
				DemoMode:      "d",
				History:       "r",
				Find:          "f",
				OpenImage:     "o",
				ThresholdUp:   "]",
				ThresholdDown: "[",
				CountUp:       "}",
				CountDown:     "{",
				Browse:        "b",
				Delete:        "x",
				Back:          "esc",
				Help:          "?",
			},
		},
		Logging: LoggingConfig{
			Level: "off",
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// setDefaults registers every scalar default under its dotted key so that
// VSEARCH_* environment variables can override nested settings.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)
	v.SetDefault("api.requests_per_second", cfg.API.RequestsPerSecond)
	v.SetDefault("api.burst", cfg.API.Burst)

	v.SetDefault("preview.timeout", cfg.Preview.Timeout)
	v.SetDefault("preview.debounce", cfg.Preview.Debounce)
	v.SetDefault("preview.max_image_bytes", cfg.Preview.MaxImageBytes)

	v.SetDefault("search.default_threshold", cfg.Search.DefaultThreshold)
	v.SetDefault("search.default_result_count", cfg.Search.DefaultResultCount)

	v.SetDefault("demos", demosToMaps(cfg.Demos))

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("database.search_index", cfg.Database.SearchIndex)
	v.SetDefault("database.history_limit", cfg.Database.HistoryLimit)

	setMapDefaults(v, "ui.colors", colorsToMap(cfg.UI.Colors))
	v.SetDefault("ui.show_notice", cfg.UI.ShowNotice)
	v.SetDefault("ui.notice_delay", cfg.UI.NoticeDelay)

	setMapDefaults(v, "media", mediaToMap(cfg.Media))
	setMapDefaults(v, "keys", keysToMap(cfg.Keys))

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

func setMapDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := prefix + "." + k
		if nested, ok := val.(map[string]any); ok {
			setMapDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

func colorsToMap(c UIColors) map[string]any {
	return map[string]any{
		"primary":    c.Primary,
		"secondary":  c.Secondary,
		"accent":     c.Accent,
		"background": c.Background,
		"surface":    c.Surface,
		"text":       c.Text,
		"muted":      c.Muted,
		"error":      c.Error,
		"success":    c.Success,
	}
}

func mediaToMap(m MediaConfig) map[string]any {
	return map[string]any{
		"darwin":         map[string]any{"image": m.Darwin.Image},
		"linux":          map[string]any{"image": m.Linux.Image},
		"windows":        map[string]any{"image": m.Windows.Image},
		"default_opener": m.DefaultOpener,
	}
}

func keysToMap(k KeyConfig) map[string]any {
	b := k.Bindings
	return map[string]any{
		"modifier": k.Modifier,
		"bindings": map[string]any{
			"quit":           b.Quit,
			"upload_mode":    b.UploadMode,
			"url_mode":       b.URLMode,
			"demo_mode":      b.DemoMode,
			"history":        b.History,
			"find":           b.Find,
			"open_image":     b.OpenImage,
			"threshold_up":   b.ThresholdUp,
			"threshold_down": b.ThresholdDown,
			"count_up":       b.CountUp,
			"count_down":     b.CountDown,
			"browse":         b.Browse,
			"delete":         b.Delete,
			"back":           b.Back,
			"help":           b.Help,
		},
	}
}

func demosToMaps(demos []DemoImage) []map[string]any {
	out := make([]map[string]any, 0, len(demos))
	for _, d := range demos {
		out = append(out, map[string]any{"id": d.ID, "label": d.Label, "url": d.URL})
	}
	return out
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "vsearch")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required (set VSEARCH_API_BASE_URL)")
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got: %s", cfg.API.BaseURL)
	}
	if cfg.Search.DefaultThreshold < 0 || cfg.Search.DefaultThreshold > 100 {
		return fmt.Errorf("search.default_threshold must be within 0..100, got: %d", cfg.Search.DefaultThreshold)
	}
	if cfg.Search.DefaultResultCount < 5 || cfg.Search.DefaultResultCount > 50 {
		return fmt.Errorf("search.default_result_count must be within 5..50, got: %d", cfg.Search.DefaultResultCount)
	}
	seen := make(map[string]bool, len(cfg.Demos))
	for _, d := range cfg.Demos {
		if d.ID == "" || d.URL == "" {
			return fmt.Errorf("demo images need both id and url")
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate demo image id: %s", d.ID)
		}
		seen[d.ID] = true
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Logging.File = expandPath(cfg.Logging.File)
}

// Demo looks up a demo image by id.
func (c *Config) Demo(id string) (DemoImage, bool) {
	for _, d := range c.Demos {
		if d.ID == id {
			return d, true
		}
	}
	return DemoImage{}, false
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations are written as strings for TOML readability
	apiCfg := map[string]interface{}{
		"base_url":            config.API.BaseURL,
		"timeout":             config.API.Timeout.String(),
		"user_agent":          config.API.UserAgent,
		"requests_per_second": config.API.RequestsPerSecond,
		"burst":               config.API.Burst,
	}

	previewCfg := map[string]interface{}{
		"timeout":         config.Preview.Timeout.String(),
		"debounce":        config.Preview.Debounce.String(),
		"max_image_bytes": config.Preview.MaxImageBytes,
	}

	dbCfg := map[string]interface{}{
		"path":          config.Database.Path,
		"timeout":       config.Database.Timeout.String(),
		"search_index":  config.Database.SearchIndex,
		"history_limit": config.Database.HistoryLimit,
	}

	uiCfg := map[string]interface{}{
		"colors":       colorsToMap(config.UI.Colors),
		"show_notice":  config.UI.ShowNotice,
		"notice_delay": config.UI.NoticeDelay.String(),
	}

	v.Set("api", apiCfg)
	v.Set("preview", previewCfg)
	v.Set("search", map[string]interface{}{
		"default_threshold":    config.Search.DefaultThreshold,
		"default_result_count": config.Search.DefaultResultCount,
	})
	v.Set("demos", demosToMaps(config.Demos))
	v.Set("database", dbCfg)
	v.Set("ui", uiCfg)
	v.Set("media", mediaToMap(config.Media))
	v.Set("keys", keysToMap(config.Keys))
	v.Set("logging", map[string]interface{}{
		"level": config.Logging.Level,
		"file":  config.Logging.File,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
