package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// BaseDirName is the per-user directory holding config and history.
	BaseDirName         = ".cleangen"
	defaultConfigName   = "config.yaml"
	defaultDatabaseName = "cleangen.db"
)

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type GeneratorConfig struct {
	LegacyWireKeys      bool   `yaml:"legacy_wire_keys"`
	AllowNameCollisions bool   `yaml:"allow_name_collisions"`
	OmitLiteralDocs     bool   `yaml:"omit_literal_docs"`
	CoreImport          string `yaml:"core_import"`
	OpenAPI             bool   `yaml:"openapi"`
	Workers             int    `yaml:"workers"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type FilterConfig struct {
	IgnoreExtensions   []string `yaml:"ignore_extensions"`
	IgnoreContentTypes []string `yaml:"ignore_content_types"`
	IgnorePaths        []string `yaml:"ignore_paths"`
}

type SanitizeConfig struct {
	Headers     []string `yaml:"headers"`
	BodyFields  []string `yaml:"body_fields"`
	Replacement string   `yaml:"replacement"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Output    OutputConfig    `yaml:"output"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Filter    FilterConfig    `yaml:"filter"`
	Sanitize  SanitizeConfig  `yaml:"sanitize"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// BaseDir returns ~/.cleangen.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, BaseDirName), nil
}

// DefaultPath returns ~/.cleangen/config.yaml.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, defaultConfigName), nil
}

// Load loads YAML config, then applies env overrides. A missing file yields
// the defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	cfg := &Config{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = "./lib/features"
	}
	if c.Generator.Workers == 0 {
		c.Generator.Workers = 4
	}
	if c.Store.Path == "" {
		if base, err := BaseDir(); err == nil {
			c.Store.Path = filepath.Join(base, defaultDatabaseName)
		}
	}
	if len(c.Filter.IgnoreExtensions) == 0 {
		c.Filter.IgnoreExtensions = []string{".js", ".css", ".png", ".jpg", ".gif", ".svg", ".woff", ".woff2", ".ico", ".map"}
	}
	if len(c.Filter.IgnoreContentTypes) == 0 {
		c.Filter.IgnoreContentTypes = []string{"text/html", "text/css", "image/*", "font/*", "application/javascript"}
	}
	if len(c.Filter.IgnorePaths) == 0 {
		c.Filter.IgnorePaths = []string{"/static/", "/assets/", "/favicon"}
	}
	if len(c.Sanitize.Headers) == 0 {
		c.Sanitize.Headers = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key", "X-Auth-Token"}
	}
	if len(c.Sanitize.BodyFields) == 0 {
		c.Sanitize.BodyFields = []string{"password", "secret", "token", "api_key", "access_token", "refresh_token", "credential"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir cannot be empty")
	}
	if c.Generator.Workers < 1 {
		return fmt.Errorf("generator.workers must be at least 1, got %d", c.Generator.Workers)
	}
	if core := strings.TrimSpace(c.Generator.CoreImport); core != "" && !strings.HasPrefix(core, "package:") {
		return fmt.Errorf("generator.core_import must be a package: uri, got %q", core)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path cannot be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateWrite enforces requirements of commands that write features.
func (c *Config) ValidateWrite() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := ensureWritableDir(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir not writable: %w", err)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Output.Dir, "CLEANGEN_OUTPUT_DIR")
	setBool(&c.Generator.LegacyWireKeys, "CLEANGEN_GENERATOR_LEGACY_WIRE_KEYS")
	setBool(&c.Generator.AllowNameCollisions, "CLEANGEN_GENERATOR_ALLOW_NAME_COLLISIONS")
	setBool(&c.Generator.OmitLiteralDocs, "CLEANGEN_GENERATOR_OMIT_LITERAL_DOCS")
	setString(&c.Generator.CoreImport, "CLEANGEN_GENERATOR_CORE_IMPORT")
	setBool(&c.Generator.OpenAPI, "CLEANGEN_GENERATOR_OPENAPI")
	setInt(&c.Generator.Workers, "CLEANGEN_GENERATOR_WORKERS")
	setString(&c.Store.Path, "CLEANGEN_STORE_PATH")
	setString(&c.Server.Host, "CLEANGEN_SERVER_HOST")
	setInt(&c.Server.Port, "CLEANGEN_SERVER_PORT")
	setList(&c.Server.CORSOrigins, "CLEANGEN_SERVER_CORS_ORIGINS")
	setString(&c.Log.Level, "CLEANGEN_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setList reads a comma separated list.
func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
