package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Workers  WorkersConfig  `yaml:"workers"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig controla la estrategia de momentum: banda de entrada,
// sizing, trend, salidas y límites de riesgo.
type StrategyConfig struct {
	CapitalInitial float64 `yaml:"capital_initial"`

	EntryYesMin float64 `yaml:"entry_yes_min"`
	EntryYesMax float64 `yaml:"entry_yes_max"`
	SizeMinPct  float64 `yaml:"size_min_pct"`
	SizeMaxPct  float64 `yaml:"size_max_pct"`

	TrendMinObservations int     `yaml:"trend_min_observations"`
	TrendMinRise         float64 `yaml:"trend_min_rise"`

	Exit1 float64 `yaml:"exit_1"`
	Exit2 float64 `yaml:"exit_2"`
	Exit3 float64 `yaml:"exit_3"`

	StopLossDrop      float64 `yaml:"stop_loss_drop"`
	MaxPositions      int     `yaml:"max_positions"`
	MaxRegionExposure float64 `yaml:"max_region_exposure"`

	MinVolume float64 `yaml:"min_volume"`
	DaysAhead int     `yaml:"days_ahead"`
}

// WorkersConfig controla los intervalos de los dos workers.
type WorkersConfig struct {
	ScanIntervalSeconds    int `yaml:"scan_interval_seconds"`
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
	MaxVerifyPerCycle      int `yaml:"max_verify_per_cycle"`
	HistoryTTLMinutes      int `yaml:"history_ttl_minutes"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ServerConfig controla el servidor HTTP de estado.
type ServerConfig struct {
	Addr string `yaml:"addr"` // ej. ":8080"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Default devuelve una configuración completa sin leer archivo, para
// arrancar sin config y para los tests.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// ScanInterval devuelve el intervalo del scan worker como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Workers.ScanIntervalSeconds) * time.Second
}

// RefreshInterval devuelve el intervalo del price worker como time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Workers.RefreshIntervalSeconds) * time.Second
}

// HistoryTTL devuelve la vida máxima del historial de precios de un mercado.
func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.Workers.HistoryTTLMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	s := &cfg.Strategy
	if s.CapitalInitial <= 0 {
		s.CapitalInitial = 100
	}
	if s.EntryYesMin <= 0 {
		s.EntryYesMin = 0.22
	}
	if s.EntryYesMax <= 0 {
		s.EntryYesMax = 0.27
	}
	if s.SizeMinPct <= 0 {
		s.SizeMinPct = 0.05
	}
	if s.SizeMaxPct <= 0 {
		s.SizeMaxPct = 0.10
	}
	if s.TrendMinObservations <= 0 {
		s.TrendMinObservations = 4
	}
	if s.TrendMinRise <= 0 {
		s.TrendMinRise = 0.05
	}
	if s.Exit1 <= 0 {
		s.Exit1 = 0.31
	}
	if s.Exit2 <= 0 {
		s.Exit2 = 0.37
	}
	if s.Exit3 <= 0 {
		s.Exit3 = 0.43
	}
	if s.StopLossDrop <= 0 {
		s.StopLossDrop = 0.05
	}
	if s.MaxPositions <= 0 {
		s.MaxPositions = 20
	}
	if s.MaxRegionExposure <= 0 {
		s.MaxRegionExposure = 0.25
	}
	if s.MinVolume <= 0 {
		s.MinVolume = 200
	}
	if s.DaysAhead <= 0 {
		s.DaysAhead = 1
	}

	w := &cfg.Workers
	if w.ScanIntervalSeconds <= 0 {
		w.ScanIntervalSeconds = 30
	}
	if w.RefreshIntervalSeconds <= 0 {
		w.RefreshIntervalSeconds = 10
	}
	if w.MaxVerifyPerCycle <= 0 {
		w.MaxVerifyPerCycle = 20
	}
	if w.HistoryTTLMinutes <= 0 {
		w.HistoryTTLMinutes = 60
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polytrend.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
