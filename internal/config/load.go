package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads config from a YAML file, then overlays environment
// variables (matching the worker environment contract in §6). Missing
// file is not an error: defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	_ = godotenv.Load() // best-effort local .env, never fatal

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	envStr("POSTGRES_DSN", &c.Postgres.DSN)
	envStr("REDIS_ADDR", &c.Redis.Addr)
	envStr("LLM_API_KEY", &c.LLM.APIKey)
	envStr("LLM_PROVIDER", &c.LLM.Provider)
	envStr("LLM_MODEL", &c.LLM.Model)
	envStr("BACKEND_API_URL", &c.Backend.BaseURL)
	envStr("BACKEND_API_URL", &c.Worker.BackendAPIURL)
	envStr("TTS_SERVER_URL", &c.Worker.TTSServerURL)
	envStr("CONTROL_API_URL", &c.Worker.ControlAPIURL)
	envStr("AGENT_SERVICE_URL", &c.Worker.AgentServiceURL)
	envStr("AGENT_WAKE_WORD", &c.Worker.AgentWakeWord)
	envBool("AGENT_ENABLED", &c.Worker.AgentEnabled)
	envStr("WORKER_IMAGE", &c.Worker.Image)
	envStr("KUBERNETES_NAMESPACE", &c.Worker.Namespace)
	envStr("IMAGE_PULL_SECRET", &c.Worker.ImagePullSecret)
	envInt("GATEWAY_PORT", &c.Gateway.Port)
	envInt("AGENT_PORT", &c.Gateway.AgentPort)
	envInt("CONTROL_PORT", &c.Gateway.ControlPort)
	envInt("BACKEND_PORT", &c.Gateway.BackendPort)
}
