// Package config loads the flat GatewayConfig record RelayMux runs from: a
// base config/setting.ini plus an environment-specific config/<env>/gateway.ini,
// merged and overridden by RELAYMUX_-prefixed environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/gateway.ini"
)

// BackendName enumerates the four wire dialects the dispatch orchestrator
// routes to.
type BackendName string

const (
	BackendResponses       BackendName = "responses"
	BackendChatCompletions BackendName = "chatcompletions"
	BackendCloudCode       BackendName = "cloudcode"
	BackendCursor          BackendName = "cursor"
)

// AllBackends lists every backend in a fixed order, used wherever
// configuration needs to be enumerated deterministically (model listing,
// pool construction at startup).
var AllBackends = []BackendName{BackendResponses, BackendChatCompletions, BackendCloudCode, BackendCursor}

// BackendConfig is the per-backend slice of GatewayConfig: its declared
// model list, its OAuth client identity, and the path to its persisted
// account pool file.
type BackendConfig struct {
	Models           []string
	OAuthClientID    string
	OAuthScope       string
	PoolFile         string
	SeedFile         string // optional hand-authored YAML bootstrap, only consulted when PoolFile is empty
	CloudCodeProject string // only meaningful for the cloud-code backend
	Endpoint         string // only meaningful for the binary-framed backend, which has no fixed public URL
	Vendor           string // checksum header vendor name, only meaningful for the binary-framed backend
}

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// GatewayConfig is the enumerated-options record every RelayMux process
// loads at startup: network binding, operator auth, retry defaults, and one
// BackendConfig per wire dialect.
type GatewayConfig struct {
	Environment       string
	Port              int
	Host              string
	APIKey            string
	DevMode           bool
	DefaultCooldownMs int
	OAuthCallbackPort int
	LogLevel          string
	RateLimitBurst    float64
	RateLimitPerSec   float64
	Backends          map[BackendName]BackendConfig
}

// LoadGatewayConfig reads the current environment and loads the appropriate
// gateway config file, merging in RELAYMUX_-prefixed environment variable
// overrides.
func LoadGatewayConfig(root string) (GatewayConfig, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return GatewayConfig{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return GatewayConfig{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := GatewayConfig{
		Environment: s.Environment,
		Host:        firstNonEmpty(os.Getenv("RELAYMUX_HOST"), merged["host"], "127.0.0.1"),
		APIKey:      firstNonEmpty(os.Getenv("RELAYMUX_API_KEY"), merged["api_key"]),
		DevMode:     parseOptionalBool(firstNonEmpty(os.Getenv("RELAYMUX_DEV_MODE"), merged["dev_mode"]), s.Environment == "dev"),
		LogLevel:    firstNonEmpty(os.Getenv("RELAYMUX_LOG_LEVEL"), merged["log_level"], "info"),
	}

	cfg.Port = parseOptionalInt(firstNonEmpty(os.Getenv("RELAYMUX_PORT"), merged["port"]), 8787)
	cfg.OAuthCallbackPort = parseOptionalInt(firstNonEmpty(os.Getenv("RELAYMUX_OAUTH_CALLBACK_PORT"), merged["oauth_callback_port"]), 8934)

	if v := firstNonEmpty(os.Getenv("RELAYMUX_DEFAULT_COOLDOWN_MS"), merged["default_cooldown_ms"]); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("invalid default_cooldown_ms %q: %w", v, err)
		}
		cfg.DefaultCooldownMs = parsed
	} else {
		cfg.DefaultCooldownMs = 60_000
	}

	cfg.RateLimitBurst = parseOptionalFloat(firstNonEmpty(os.Getenv("RELAYMUX_RATE_LIMIT_BURST"), merged["rate_limit_burst"]), 50)
	cfg.RateLimitPerSec = parseOptionalFloat(firstNonEmpty(os.Getenv("RELAYMUX_RATE_LIMIT_PER_SECOND"), merged["rate_limit_per_second"]), 10)

	poolDir := firstNonEmpty(os.Getenv("RELAYMUX_POOL_DIR"), merged["pool_dir"], DefaultPoolDir())

	cfg.Backends = map[BackendName]BackendConfig{
		BackendResponses: {
			Models:        parseCSV(firstNonEmpty(os.Getenv("RELAYMUX_RESPONSES_MODELS"), merged["responses_models"], "gpt-5.1-codex,gpt-5.1-codex-mini")),
			OAuthClientID: firstNonEmpty(os.Getenv("RELAYMUX_RESPONSES_OAUTH_CLIENT_ID"), merged["responses_oauth_client_id"]),
			OAuthScope:    firstNonEmpty(os.Getenv("RELAYMUX_RESPONSES_OAUTH_SCOPE"), merged["responses_oauth_scope"], "openid profile email"),
			PoolFile:      firstNonEmpty(os.Getenv("RELAYMUX_RESPONSES_POOL_FILE"), merged["responses_pool_file"], filepath.Join(poolDir, "responses.json")),
			SeedFile:      firstNonEmpty(os.Getenv("RELAYMUX_RESPONSES_SEED_FILE"), merged["responses_seed_file"]),
		},
		BackendChatCompletions: {
			Models:        parseCSV(firstNonEmpty(os.Getenv("RELAYMUX_CHATCOMPLETIONS_MODELS"), merged["chatcompletions_models"], "gh/gpt-4o,gh/o1")),
			OAuthClientID: firstNonEmpty(os.Getenv("RELAYMUX_CHATCOMPLETIONS_OAUTH_CLIENT_ID"), merged["chatcompletions_oauth_client_id"]),
			OAuthScope:    firstNonEmpty(os.Getenv("RELAYMUX_CHATCOMPLETIONS_OAUTH_SCOPE"), merged["chatcompletions_oauth_scope"], "read:user"),
			PoolFile:      firstNonEmpty(os.Getenv("RELAYMUX_CHATCOMPLETIONS_POOL_FILE"), merged["chatcompletions_pool_file"], filepath.Join(poolDir, "chatcompletions.json")),
			SeedFile:      firstNonEmpty(os.Getenv("RELAYMUX_CHATCOMPLETIONS_SEED_FILE"), merged["chatcompletions_seed_file"]),
		},
		BackendCloudCode: {
			Models:           parseCSV(firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_MODELS"), merged["cloudcode_models"], "claude-opus-4,claude-sonnet-4,gemini-2.5-pro")),
			OAuthClientID:    firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_OAUTH_CLIENT_ID"), merged["cloudcode_oauth_client_id"]),
			OAuthScope:       firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_OAUTH_SCOPE"), merged["cloudcode_oauth_scope"], "https://www.googleapis.com/auth/cloud-platform"),
			PoolFile:         firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_POOL_FILE"), merged["cloudcode_pool_file"], filepath.Join(poolDir, "cloudcode.json")),
			SeedFile:         firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_SEED_FILE"), merged["cloudcode_seed_file"]),
			CloudCodeProject: firstNonEmpty(os.Getenv("RELAYMUX_CLOUDCODE_PROJECT"), merged["cloudcode_project"]),
		},
		// Cursor carries a static per-account API-token credential (no
		// OAuth client identity applies), so it has no OAuthClientID or
		// OAuthScope entry here.
		BackendCursor: {
			Models:   parseCSV(firstNonEmpty(os.Getenv("RELAYMUX_CURSOR_MODELS"), merged["cursor_models"], "cu/fast,cu/reasoning")),
			PoolFile: firstNonEmpty(os.Getenv("RELAYMUX_CURSOR_POOL_FILE"), merged["cursor_pool_file"], filepath.Join(poolDir, "cursor.json")),
			SeedFile: firstNonEmpty(os.Getenv("RELAYMUX_CURSOR_SEED_FILE"), merged["cursor_seed_file"]),
			Endpoint: firstNonEmpty(os.Getenv("RELAYMUX_CURSOR_ENDPOINT"), merged["cursor_endpoint"], "https://api2.cursor.sh/aiserver.v1.ChatService/StreamChat"),
			Vendor:   firstNonEmpty(os.Getenv("RELAYMUX_CURSOR_VENDOR"), merged["cursor_vendor"], "Cursor"),
		},
	}

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseOptionalBool(v string, fallback bool) bool {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return parseBool(v)
}

func parseOptionalInt(v string, fallback int) int {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return parsed
	}
	return fallback
}

func parseOptionalFloat(v string, fallback float64) float64 {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return parsed
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DefaultPoolDir returns the fallback directory for per-backend account
// pool files, under the user's home directory.
func DefaultPoolDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./relaymux-pools"
	}
	return filepath.Join(home, ".relaymux", "pools")
}
