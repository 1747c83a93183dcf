package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/dualbot/internal/application/sweep"
	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/indicators"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest   BacktestConfig        `yaml:"backtest"`
	Strategy   domain.StrategyParams `yaml:"strategy"`
	Indicators indicators.Config     `yaml:"indicators"`
	Sweep      SweepConfig           `yaml:"sweep"`
	API        APIConfig             `yaml:"api"`
	Storage    StorageConfig         `yaml:"storage"`
	Log        LogConfig             `yaml:"log"`
}

// BacktestConfig define la ventana de datos y el capital.
type BacktestConfig struct {
	Symbol         string  `yaml:"symbol"`          // "ETH/USDT" o "ETHUSDT"
	SourceInterval string  `yaml:"source_interval"` // intervalo que se descarga
	BarInterval    string  `yaml:"bar_interval"`    // intervalo tras resample
	LookbackHours  int     `yaml:"lookback_hours"`
	WarmupBars     int     `yaml:"warmup_bars"` // debe cubrir las ventanas de los indicadores
	InitialCapital float64 `yaml:"initial_capital"`
}

// SweepConfig es el grid de parámetros para el modo -sweep.
type SweepConfig struct {
	Grid    sweep.Grid `yaml:"grid"`
	Workers int        `yaml:"workers"` // 0 = NumCPU
	Top     int        `yaml:"top"`     // filas a mostrar
}

// APIConfig contiene el base URL del exchange.
type APIConfig struct {
	BinanceBase string `yaml:"binance_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN      string `yaml:"dsn"`       // ruta al archivo SQLite, o ":memory:"
	CacheDir string `yaml:"cache_dir"` // directorio de la cache parquet; vacío la desactiva
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
	return Parse(data)
}

// Parse decodifica YAML y aplica overrides de entorno y defaults.
// strategy e indicators parten de los valores de referencia, así una key
// ausente conserva el default y un 0 explícito se respeta.
func Parse(data []byte) (*Config, error) {
	cfg := Config{
		Strategy:   domain.DefaultStrategyParams(),
		Indicators: indicators.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: strategy: %w", err)
	}
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: indicators: %w", err)
	}
	return &cfg, nil
}

// Lookback devuelve la ventana histórica como time.Duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Backtest.LookbackHours) * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DUALBOT_SYMBOL"); v != "" {
		cfg.Backtest.Symbol = v
	}
	if v := os.Getenv("BINANCE_BASE"); v != "" {
		cfg.API.BinanceBase = v
	}
	if v := os.Getenv("DUALBOT_DB"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.Symbol == "" {
		cfg.Backtest.Symbol = "ETH/USDT"
	}
	if cfg.Backtest.SourceInterval == "" {
		cfg.Backtest.SourceInterval = "1m"
	}
	if cfg.Backtest.BarInterval == "" {
		cfg.Backtest.BarInterval = "3m"
	}
	if cfg.Backtest.LookbackHours <= 0 {
		cfg.Backtest.LookbackHours = 7 * 24
	}
	if cfg.Backtest.WarmupBars <= 0 {
		cfg.Backtest.WarmupBars = 20
	}
	if cfg.Backtest.InitialCapital <= 0 {
		cfg.Backtest.InitialCapital = 10_000
	}
	if cfg.Sweep.Top <= 0 {
		cfg.Sweep.Top = 10
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://api.binance.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "dualbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
