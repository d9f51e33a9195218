package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Backend  MBackendConfig `yaml:"backend"`
	Push     MPushConfig    `yaml:"push"`
	Poll     MPollConfig    `yaml:"poll"`
	View     MViewConfig    `yaml:"view"`
	Storage  MStorageConfig `yaml:"storage"`
	Roads    MRoadsConfig   `yaml:"roads"`
}

type MBackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	WsURL          string `yaml:"ws_url"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
}

type MPushConfig struct {
	BaseDelaySeconds     int `yaml:"base_delay_seconds"`
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
}

type MPollConfig struct {
	SignalsIntervalSeconds   int `yaml:"signals_interval_seconds"`
	StatsIntervalSeconds     int `yaml:"stats_interval_seconds"`
	EmergencyIntervalSeconds int `yaml:"emergency_interval_seconds"`
	ContextIntervalSeconds   int `yaml:"context_interval_seconds"`
	HistoryRetentionDays     int `yaml:"history_retention_days"`
}

type MViewConfig struct {
	DebounceMillis int `yaml:"debounce_millis"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MRoadsConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}
