// Package config resolves holdingsync settings from a JSON config file, .env
// files, the process environment and runtime flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvSheetID         = "HOLDINGSYNC_SHEET_ID"
	EnvLegacySheetID   = "GOOGLE_SHEET_ID"
	EnvCredentialsJSON = "GOOGLE_SHEETS_CREDENTIALS"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvCSVDir          = "HOLDINGSYNC_CSV_DIR"
	EnvHoldingsSheet   = "HOLDINGSYNC_HOLDINGS_SHEET"
	EnvDashboardSheet  = "HOLDINGSYNC_DASHBOARD_SHEET"
	EnvReportsSheet    = "HOLDINGSYNC_REPORTS_SHEET"
	EnvWriteDelay      = "HOLDINGSYNC_WRITE_DELAY"
	EnvClearRows       = "HOLDINGSYNC_CLEAR_ROWS"
	EnvCurrency        = "HOLDINGSYNC_CURRENCY"
	EnvTimeZone        = "HOLDINGSYNC_TIMEZONE"
	EnvJournal         = "HOLDINGSYNC_JOURNAL"
	EnvDataDir         = "HOLDINGSYNC_DATA_DIR"
)

// Defaults.
const (
	DefaultCSVDir         = "CSV"
	DefaultHoldingsSheet  = "Holdings Detail"
	DefaultDashboardSheet = "Performance Dashboard"
	DefaultReportsSheet   = "Daily Reports"
	DefaultWriteDelay     = 100 * time.Millisecond
	DefaultClearRows      = 1000
	DefaultCurrency       = "CAD"
	DefaultTimeZone       = "UTC"
)

// UserConfig is the JSON config file. Empty fields fall through to defaults.
type UserConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	CredentialsFile string `json:"credentials_file"`
	CSVDir          string `json:"csv_dir"`
	HoldingsSheet   string `json:"holdings_sheet"`
	DashboardSheet  string `json:"dashboard_sheet"`
	ReportsSheet    string `json:"reports_sheet"`
	WriteDelay      string `json:"write_delay"`
	ClearRows       int    `json:"clear_rows"`
	Currency        string `json:"currency"`
	TimeZone        string `json:"time_zone"`
	JournalPath     string `json:"journal_path"`
	DataDir         string `json:"data_dir"`
}

// Settings is the resolved configuration of one invocation.
type Settings struct {
	SpreadsheetID   string
	CredentialsJSON []byte
	CredentialsFile string
	CSVDir          string
	HoldingsSheet   string
	DashboardSheet  string
	ReportsSheet    string
	WriteDelay      time.Duration
	ClearRows       int
	Currency        string
	TimeZone        string
	JournalPath     string
}

var runtimeDataDir string

// isMacOS reports whether the app config dir follows the macOS layout.
func isMacOS() bool {
	return runtime.GOOS == "darwin"
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}

// SetRuntimeDataDir overrides every other data dir source.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func appConfigDir() (string, error) {
	if isMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "HoldingSync"), nil
	}
	if isWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "HoldingSync"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "holdingsync"), nil
	}
	return filepath.Join(configDir, "holdingsync"), nil
}

// ConfigPath returns the config file in use: the app config dir file when it
// exists, else ./config.json when it exists, else "".
func ConfigPath() string {
	if dir, err := appConfigDir(); err == nil {
		candidate := filepath.Join(dir, "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadUserConfig reads the config file. A missing file yields the zero
// config; a malformed one is an error.
func LoadUserConfig() (UserConfig, error) {
	var cfg UserConfig
	path := ConfigPath()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveUserConfig writes cfg to the app config dir and returns the file path.
func SaveUserConfig(cfg UserConfig) (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// LoadEnvFile loads variables from a .env file without overriding variables
// already set. An empty path means ./.env, which may be absent.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load resolves Settings: defaults, then the config file, then the
// environment.
func Load() (Settings, error) {
	cfg, err := LoadUserConfig()
	if err != nil {
		return Settings{}, err
	}
	return Resolve(cfg)
}

// Resolve layers the environment over cfg and defaults.
func Resolve(cfg UserConfig) (Settings, error) {
	s := Settings{
		SpreadsheetID:   firstNonEmpty(os.Getenv(EnvSheetID), os.Getenv(EnvLegacySheetID), cfg.SpreadsheetID),
		CredentialsFile: firstNonEmpty(os.Getenv(EnvCredentialsFile), cfg.CredentialsFile),
		CSVDir:          firstNonEmpty(os.Getenv(EnvCSVDir), cfg.CSVDir, DefaultCSVDir),
		HoldingsSheet:   firstNonEmpty(os.Getenv(EnvHoldingsSheet), cfg.HoldingsSheet, DefaultHoldingsSheet),
		DashboardSheet:  firstNonEmpty(os.Getenv(EnvDashboardSheet), cfg.DashboardSheet, DefaultDashboardSheet),
		ReportsSheet:    firstNonEmpty(os.Getenv(EnvReportsSheet), cfg.ReportsSheet, DefaultReportsSheet),
		Currency:        strings.ToUpper(firstNonEmpty(os.Getenv(EnvCurrency), cfg.Currency, DefaultCurrency)),
		TimeZone:        firstNonEmpty(os.Getenv(EnvTimeZone), cfg.TimeZone, DefaultTimeZone),
		JournalPath:     firstNonEmpty(os.Getenv(EnvJournal), cfg.JournalPath),
		WriteDelay:      DefaultWriteDelay,
		ClearRows:       DefaultClearRows,
	}
	if raw := strings.TrimSpace(os.Getenv(EnvCredentialsJSON)); raw != "" {
		s.CredentialsJSON = []byte(raw)
	}

	if delay := firstNonEmpty(os.Getenv(EnvWriteDelay), cfg.WriteDelay); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil || d < 0 {
			return s, fmt.Errorf("invalid write delay %q", delay)
		}
		s.WriteDelay = d
	}

	if cfg.ClearRows > 0 {
		s.ClearRows = cfg.ClearRows
	}
	if raw := strings.TrimSpace(os.Getenv(EnvClearRows)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return s, fmt.Errorf("invalid %s %q", EnvClearRows, raw)
		}
		s.ClearRows = n
	}
	return s, nil
}

// GetDataDir resolves the data dir: runtime flag, HOLDINGSYNC_DATA_DIR, the
// config file, then the app config dir. The directory is created.
func GetDataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = os.Getenv(EnvDataDir)
	}
	if dir == "" {
		if cfg, err := LoadUserConfig(); err == nil {
			dir = cfg.DataDir
		}
	}
	if dir == "" {
		d, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetLogDir returns <data dir>/logs.
func GetLogDir() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// GetJournalPath returns the configured journal path, resolving a relative
// path against the data dir. An empty result means the journal is disabled.
func GetJournalPath(s Settings) (string, error) {
	if s.JournalPath == "" || filepath.IsAbs(s.JournalPath) {
		return s.JournalPath, nil
	}
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.JournalPath), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
