package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API = APIConfig{
		BaseURL:   "http://127.0.0.1:0",
		Timeout:   5 * time.Second,
		UserAgent: "vsearch-test/1.0",
	}
	cfg.Preview = PreviewConfig{
		Timeout:       2 * time.Second,
		Debounce:      10 * time.Millisecond,
		MaxImageBytes: 1 << 20,
	}
	cfg.Database = DatabaseConfig{
		Path:         ":memory:",
		Timeout:      1 * time.Second,
		HistoryLimit: 10,
	}
	cfg.UI.ShowNotice = false
	return cfg
}
