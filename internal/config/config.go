package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

const SupportedVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version  string         `yaml:"version" default:"1"`
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Editor   EditorConfig   `yaml:"editor"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

type SiteConfig struct {
	Name              string `yaml:"name" default:"The Kennel"`
	DefaultBackground string `yaml:"default_background" default:"/static/hero-default.svg"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

// BackendConfig points the layout gateway at the REST backend. An empty URL serves layouts
// from the embedded SQLite repository without going through HTTP.
type BackendConfig struct {
	URL            string        `yaml:"url" default:""`
	Timeout        time.Duration `yaml:"timeout" default:"10s"`
	WatchInterval  time.Duration `yaml:"watch_interval" default:"10s"`
	ServeLayoutAPI bool          `yaml:"serve_layout_api" default:"true"`
}

type UploadsConfig struct {
	Provider string       `yaml:"provider" default:"preset"`
	Preset   PresetConfig `yaml:"preset"`
	S3       S3Config     `yaml:"s3"`
}

type PresetConfig struct {
	Endpoint string `yaml:"endpoint" default:""`
	Name     string `yaml:"name" default:"kennel_unsigned"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket" default:""`
	Endpoint      string `yaml:"endpoint" default:""`
	Region        string `yaml:"region" default:"auto"`
	Prefix        string `yaml:"prefix" default:"sites"`
	PublicBaseURL string `yaml:"public_base_url" default:""`
}

type EditorConfig struct {
	MaxUploadBytes int64         `yaml:"max_upload_bytes" default:"10485760"`
	SessionIdle    time.Duration `yaml:"session_idle" default:"30m"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" default:"./kennel.db"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// OwnerKeys maps an owner ID to the PEM-encoded Ed25519 public key that signs its challenges.
	OwnerKeys map[string]string `yaml:"owner_keys"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Validate checks the values that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q (want %q)", c.Version, SupportedVersion)
	}

	switch c.Uploads.Provider {
	case "preset", "s3":
	default:
		return fmt.Errorf("unknown uploads provider %q", c.Uploads.Provider)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Editor.MaxUploadBytes <= 0 {
		return fmt.Errorf("editor.max_upload_bytes must be positive, got %d", c.Editor.MaxUploadBytes)
	}
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		// time.Duration is an int64 underneath; parse it before the generic kinds.
		if field.Type() == durationType {
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
