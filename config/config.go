// Package config loads llmmeter configuration from YAML with environment
// overrides. The resulting Config is passed explicitly to constructors;
// nothing reads it as ambient global state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pricing       PricingConfig       `yaml:"pricing"`
	Storage       StorageConfig       `yaml:"storage"`
	Capture       CaptureConfig       `yaml:"capture"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type PricingConfig struct {
	// URL of the remote pricing document, fetched once at startup.
	URL string `yaml:"url"`
	// File points at a local pricing document and takes precedence over URL.
	File           string `yaml:"file"`
	FetchTimeoutMS int    `yaml:"fetch_timeout_ms"`
}

type StorageConfig struct {
	// Driver selects the usage ledger backend: "none", "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type CaptureConfig struct {
	// MaxBodySize caps how many response bytes are buffered for usage
	// extraction on non-streaming calls.
	MaxBodySize int `yaml:"max_body_size"`
}

type ObservabilityConfig struct {
	OTel OTelConfig `yaml:"otel"`
}

type OTelConfig struct {
	Enabled                bool    `yaml:"enabled"`
	Endpoint               string  `yaml:"endpoint"`
	Insecure               bool    `yaml:"insecure"`
	ServiceName            string  `yaml:"service_name"`
	TracesEnabled          bool    `yaml:"traces_enabled"`
	MetricsEnabled         bool    `yaml:"metrics_enabled"`
	SamplingRatio          float64 `yaml:"sampling_ratio"`
	ExportTimeoutMS        int     `yaml:"export_timeout_ms"`
	MetricExportIntervalMS int     `yaml:"metric_export_interval_ms"`
}

const (
	StorageDriverNone     = "none"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

const (
	defaultPricingFetchTimeoutMS      = 5000
	defaultCaptureMaxBodySize         = 1 << 20
	defaultSQLitePath                 = "llmmeter.db"
	defaultOTelEndpoint               = "localhost:4318"
	defaultOTelServiceName            = "llmmeter"
	defaultOTelSamplingRatio          = 1.0
	defaultOTelExportTimeoutMS        = 3000
	defaultOTelMetricExportIntervalMS = 10000
)

func Default() Config {
	return Config{
		Pricing: PricingConfig{
			FetchTimeoutMS: defaultPricingFetchTimeoutMS,
		},
		Storage: StorageConfig{
			Driver: StorageDriverNone,
			Path:   defaultSQLitePath,
		},
		Capture: CaptureConfig{
			MaxBodySize: defaultCaptureMaxBodySize,
		},
		Observability: ObservabilityConfig{
			OTel: OTelConfig{
				Enabled:                false,
				Endpoint:               defaultOTelEndpoint,
				ServiceName:            defaultOTelServiceName,
				TracesEnabled:          true,
				MetricsEnabled:         true,
				SamplingRatio:          defaultOTelSamplingRatio,
				ExportTimeoutMS:        defaultOTelExportTimeoutMS,
				MetricExportIntervalMS: defaultOTelMetricExportIntervalMS,
			},
		},
	}
}

// Load reads the YAML config at path, if present, and applies environment
// overrides on top. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true)
			decodeErr := decoder.Decode(&cfg)
			if errors.Is(decodeErr, io.EOF) {
				decodeErr = nil
			}
			if decodeErr != nil {
				return Config{}, fmt.Errorf("parse yaml %q: %w", path, decodeErr)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	switch cfg.Storage.Driver {
	case StorageDriverNone:
	case StorageDriverSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("storage.path must be set for the sqlite driver")
		}
	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return errors.New("storage.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be none, sqlite or postgres (got %q)", cfg.Storage.Driver)
	}

	if cfg.Capture.MaxBodySize <= 0 {
		return errors.New("capture.max_body_size must be positive")
	}
	if cfg.Pricing.FetchTimeoutMS <= 0 {
		return errors.New("pricing.fetch_timeout_ms must be positive")
	}

	otel := cfg.Observability.OTel
	if otel.Enabled {
		if strings.TrimSpace(otel.Endpoint) == "" {
			return errors.New("observability.otel.endpoint must be set when otel is enabled")
		}
		if otel.SamplingRatio < 0 || otel.SamplingRatio > 1 {
			return fmt.Errorf("observability.otel.sampling_ratio must be within [0, 1] (got %v)", otel.SamplingRatio)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if url := os.Getenv("LLMMETER_PRICING_URL"); url != "" {
		cfg.Pricing.URL = url
	}
	if file := os.Getenv("LLMMETER_PRICING_FILE"); file != "" {
		cfg.Pricing.File = file
	}
	if driver := os.Getenv("LLMMETER_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("LLMMETER_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if dsn := os.Getenv("LLMMETER_STORAGE_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if maxBody := os.Getenv("LLMMETER_MAX_BODY_SIZE"); maxBody != "" {
		parsed, err := strconv.Atoi(maxBody)
		if err != nil {
			return fmt.Errorf("parse LLMMETER_MAX_BODY_SIZE: %w", err)
		}
		cfg.Capture.MaxBodySize = parsed
	}

	if disabled := strings.TrimSpace(os.Getenv("OTEL_SDK_DISABLED")); disabled != "" {
		parsed, err := strconv.ParseBool(disabled)
		if err != nil {
			return fmt.Errorf("parse OTEL_SDK_DISABLED: %w", err)
		}
		cfg.Observability.OTel.Enabled = !parsed
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		cfg.Observability.OTel.Endpoint = endpoint
	}
	if serviceName := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); serviceName != "" {
		cfg.Observability.OTel.ServiceName = serviceName
	}
	if insecure := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); insecure != "" {
		parsed, err := strconv.ParseBool(insecure)
		if err != nil {
			return fmt.Errorf("parse OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
		cfg.Observability.OTel.Insecure = parsed
	}
	if ratio := strings.TrimSpace(os.Getenv("OTEL_TRACES_SAMPLER_ARG")); ratio != "" {
		parsed, err := strconv.ParseFloat(ratio, 64)
		if err != nil {
			return fmt.Errorf("parse OTEL_TRACES_SAMPLER_ARG: %w", err)
		}
		cfg.Observability.OTel.SamplingRatio = parsed
	}
	return nil
}
