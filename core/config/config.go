package config

import (
	"reflect"
	"strings"

	"org-janitor/core/logger"
	"org-janitor/core/platform"
	"org-janitor/core/ratelimit"
	"org-janitor/core/reconcile"
	"org-janitor/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the tool.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Platform holds the vendor API connection and credentials.
	Platform platform.Config `mapstructure:"platform"`
	// Limiter holds the client-side rate limiter settings.
	Limiter ratelimit.Config `mapstructure:"limiter"`
	// Purge holds retry tuning for delete dispatch.
	Purge reconcile.Config `mapstructure:"purge"`
	// Archive holds the archive retention sweep settings.
	Archive ArchiveConfig `mapstructure:"archive"`
	// Storage holds configuration for the offload object store.
	Storage storage.Config `mapstructure:"storage"`
	// Keep holds the allow-lists of persistent entries.
	Keep KeepConfig `mapstructure:"keep"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// ArchiveConfig holds the retention policy for the archive sweep.
type ArchiveConfig struct {
	// AgeLimitDays is the retention threshold in local calendar days.
	// Zero disables the age check entirely: every non-persistent archive
	// is purged. That is an explicit override, not a default.
	AgeLimitDays int `mapstructure:"age_limit_days" default:"14"`
	// AttributionWindowMinutes bounds the audit-log scan around a run.
	AttributionWindowMinutes int `mapstructure:"attribution_window_minutes" default:"15"`
	// OffloadEnabled downloads each export to the offload bucket before
	// deleting it.
	OffloadEnabled bool `mapstructure:"offload_enabled" default:"false"`
}

// KeepConfig holds the comma-separated allow-lists. Entries may be vendor
// IDs or display names; both are honored.
type KeepConfig struct {
	// Devices lists devices that must never be deleted.
	Devices string `mapstructure:"devices" default:""`
	// Archives lists export IDs that must never be deleted.
	Archives string `mapstructure:"archives" default:""`
	// Users lists user IDs or emails that must never be deleted.
	Users string `mapstructure:"users" default:""`
}

// DeviceKeys returns the device allow-list as a cleaned slice.
func (k KeepConfig) DeviceKeys() []string {
	return splitList(k.Devices)
}

// ArchiveKeys returns the archive allow-list as a cleaned slice.
func (k KeepConfig) ArchiveKeys() []string {
	return splitList(k.Archives)
}

// UserKeys returns the user allow-list as a cleaned slice.
func (k KeepConfig) UserKeys() []string {
	return splitList(k.Users)
}

func splitList(s string) []string {
	var keys []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. PLATFORM_ORG_ID -> platform.org_id)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
