package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Dbname   string `json:"dbname"`
	Sslmode  string `json:"sslmode"`
}

func (d Database) String() string {
	return fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Dbname, d.Sslmode)
}

type Config struct {
	Database             Database `json:"database"`
	Address              string   `json:"address"`
	TokenSecret          string   `json:"tokenSecret"`
	TokenMinutes         int      `json:"tokenMinutes"`
	LeadTimeMillis       int      `json:"leadTimeMillis"`
	DriverIntervalMillis int      `json:"driverIntervalMillis"`
	DictionaryPath       string   `json:"dictionaryPath"`
	AllowedOrigins       []string `json:"allowedOrigins"`
	LogLevel             string   `json:"logLevel"`
	PrettyLogs           bool     `json:"prettyLogs"`
}

func Default() Config {
	return Config{
		Database: Database{
			Port:    5432,
			Sslmode: "disable",
		},
		Address:              "localhost:8080",
		TokenMinutes:         120,
		LeadTimeMillis:       2000,
		DriverIntervalMillis: 1000,
		AllowedOrigins:       []string{"*"},
		LogLevel:             "info",
		PrettyLogs:           true,
	}
}

// Load reads the JSON file at path on top of the defaults, then a .env file
// from the working directory, then KATEGORIE_* variables. Missing files are
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config read error: %w", err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config parse error: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config env file error: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"KATEGORIE_DB_HOST":         &c.Database.Host,
		"KATEGORIE_DB_USER":         &c.Database.User,
		"KATEGORIE_DB_PASSWORD":     &c.Database.Password,
		"KATEGORIE_DB_NAME":         &c.Database.Dbname,
		"KATEGORIE_DB_SSLMODE":      &c.Database.Sslmode,
		"KATEGORIE_ADDRESS":         &c.Address,
		"KATEGORIE_TOKEN_SECRET":    &c.TokenSecret,
		"KATEGORIE_DICTIONARY_PATH": &c.DictionaryPath,
		"KATEGORIE_LOG_LEVEL":       &c.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"KATEGORIE_DB_PORT":                &c.Database.Port,
		"KATEGORIE_TOKEN_MINUTES":          &c.TokenMinutes,
		"KATEGORIE_LEAD_TIME_MILLIS":       &c.LeadTimeMillis,
		"KATEGORIE_DRIVER_INTERVAL_MILLIS": &c.DriverIntervalMillis,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse %s=%q as int", name, v)
		}
		*dst = n
	}

	if v, ok := lookup("KATEGORIE_PRETTY_LOGS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse KATEGORIE_PRETTY_LOGS=%q as bool", v)
		}
		c.PrettyLogs = b
	}
	if v, ok := lookup("KATEGORIE_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// UsesMemoryStore is true when no database host is configured.
func (c Config) UsesMemoryStore() bool {
	return c.Database.Host == ""
}

func (c Config) LeadTime() time.Duration {
	return time.Duration(c.LeadTimeMillis) * time.Millisecond
}

func (c Config) DriverInterval() time.Duration {
	return time.Duration(c.DriverIntervalMillis) * time.Millisecond
}

func (c Config) TokenDuration() time.Duration {
	return time.Duration(c.TokenMinutes) * time.Minute
}
