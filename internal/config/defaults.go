package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kbsync/data/db/knowledge.db"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "/usr/local/var/kbsync/data/uploads"
	}
	if cfg.Angelos.URL == "" {
		cfg.Angelos.URL = "http://localhost:9007"
	}
	if cfg.Angelos.TimeoutSeconds == 0 {
		cfg.Angelos.TimeoutSeconds = 30
	}
	if cfg.Parser.FetchTimeoutSeconds == 0 {
		cfg.Parser.FetchTimeoutSeconds = 10
	}
}
