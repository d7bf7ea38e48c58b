package config

// DefaultExtensions are the file types uploaded by watch folders.
var DefaultExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx", ".odt", ".rtf", ".html"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.TimeoutSecs < 0 {
		cfg.API.TimeoutSecs = 0
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = ".local/share/docsearch/session.db"
	}
	if cfg.Search.DefaultTopK <= 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Upload.Extensions == nil {
		cfg.Upload.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Upload.PollIntervalMs <= 0 {
		cfg.Upload.PollIntervalMs = 2000
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = 500
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
