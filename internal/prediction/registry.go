package prediction

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"

	"gopkg.in/yaml.v3"
)

// Service describes one coin's externally hosted model service.
type Service struct {
	BaseURL   string `yaml:"base_url"`
	Endpoint  string `yaml:"endpoint"`   // Case-sensitive path suffix after /predict/
	ModelName string `yaml:"model_name"` // Shown next to the forecast
}

// Registry maps dashboard coins to their model services.
type Registry struct {
	Services map[string]Service `yaml:"services"`
}

// DefaultRegistry mirrors the services the dashboard was launched with.
// Only the ETH service has a published base URL; the others must come from config.
func DefaultRegistry() Registry {
	return Registry{Services: map[string]Service{
		"BTC": {Endpoint: "bitcoin", ModelName: "Unknown"},
		"ETH": {BaseURL: "https://amla-at3-fastapi-latest.onrender.com", Endpoint: "ETHUSD", ModelName: "LinearRegressionModel"},
		"SOL": {Endpoint: "SOLUSD", ModelName: "Unknown"},
		"XRP": {Endpoint: "xrp", ModelName: "Unknown"},
	}}
}

// LoadRegistry reads a YAML registry from path. Entries override the defaults
// coin by coin; an empty path returns the defaults.
func LoadRegistry(path string) (Registry, error) {
	reg := DefaultRegistry()
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read prediction registry: %w: %w", ports.ErrConfigurationError, err)
	}
	var file Registry
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Registry{}, fmt.Errorf("parse prediction registry: %w: %w", ports.ErrConfigurationError, err)
	}

	for coin, svc := range file.Services {
		coin = strings.ToUpper(strings.TrimSpace(coin))
		base := reg.Services[coin]
		if svc.BaseURL != "" {
			base.BaseURL = svc.BaseURL
		}
		if svc.Endpoint != "" {
			base.Endpoint = svc.Endpoint
		}
		if svc.ModelName != "" {
			base.ModelName = svc.ModelName
		}
		if base.Endpoint == "" {
			return Registry{}, fmt.Errorf("prediction service %s has no endpoint: %w", coin, ports.ErrConfigurationError)
		}
		if base.ModelName == "" {
			base.ModelName = "Unknown"
		}
		reg.Services[coin] = base
	}
	return reg, nil
}

// Lookup returns the service for coin.
func (r Registry) Lookup(coin string) (Service, bool) {
	svc, ok := r.Services[strings.ToUpper(strings.TrimSpace(coin))]
	return svc, ok
}

// Coins lists registered coins, dashboard coins first in their display order.
func (r Registry) Coins() []string {
	seen := make(map[string]bool, len(r.Services))
	out := make([]string, 0, len(r.Services))
	for _, c := range marketdata.Coins {
		if _, ok := r.Services[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var rest []string
	for c := range r.Services {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// probeEndpoint is the endpoint used to probe a service without /health.
func (r Registry) probeEndpoint() string {
	coins := r.Coins()
	if len(coins) == 0 {
		return ""
	}
	return r.Services[coins[0]].Endpoint
}
