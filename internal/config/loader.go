package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookupEnv(envName, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookupEnv returns the first non-empty value of the primary or alternate variable.
func lookupEnv(primary, alt string) (string, bool) {
	if v := os.Getenv(primary); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Dataset validation
	if c.Dataset.Name == "" {
		errs = append(errs, "DATASET_NAME is required")
	} else if owner, slug, ok := strings.Cut(c.Dataset.Name, "/"); !ok || owner == "" || slug == "" || strings.Contains(slug, "/") {
		errs = append(errs, fmt.Sprintf("DATASET_NAME (%q) must be in owner/name form", c.Dataset.Name))
	}
	if c.Dataset.Dir == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}
	if c.Dataset.DateColumn == "" {
		errs = append(errs, "DATASET_DATE_COLUMN must not be empty")
	}
	if c.Dataset.SourceColumn == "" {
		errs = append(errs, "DATASET_SOURCE_COLUMN must not be empty")
	}
	if !oneOf(c.Dataset.Sort, "always", "parsed", "never") {
		errs = append(errs, fmt.Sprintf("DATASET_SORT (%q) must be one of: always, parsed, never", c.Dataset.Sort))
	}
	if !oneOf(c.Dataset.OnCollision, "overwrite", "fail") {
		errs = append(errs, fmt.Sprintf("DATASET_ON_COLLISION (%q) must be one of: overwrite, fail", c.Dataset.OnCollision))
	}

	// Kaggle validation
	if (c.Kaggle.Username == "") != (c.Kaggle.Key == "") {
		errs = append(errs, "KAGGLE_USERNAME and KAGGLE_KEY must be set together")
	}
	if !strings.HasPrefix(c.Kaggle.APIURL, "http://") && !strings.HasPrefix(c.Kaggle.APIURL, "https://") {
		errs = append(errs, fmt.Sprintf("KAGGLE_API_URL (%q) must be an http(s) URL", c.Kaggle.APIURL))
	}
	if c.Kaggle.Timeout <= 0 {
		errs = append(errs, "KAGGLE_TIMEOUT must be positive")
	}

	// Database validation
	if c.Database.ExportEnabled() && c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Server validation
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
		}
		if c.Server.ShutdownTimeout <= 0 {
			errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
		}
		if c.Server.PageSize <= 0 {
			errs = append(errs, "SERVER_PAGE_SIZE must be positive")
		}
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	if !oneOf(c.Logging.Format, "text", "json") {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// String returns a safe string representation of the config for logging.
// Credentials and the database URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Dataset: {Name: %q, Dir: %q, Unzip: %v, ParseDates: %v, Sort: %q, OnCollision: %q}, ",
		c.Dataset.Name, c.Dataset.Dir, c.Dataset.Unzip, c.Dataset.ParseDates, c.Dataset.Sort, c.Dataset.OnCollision)
	fmt.Fprintf(&b, "Kaggle: {Username: %q, Key: %s, APIURL: %q}, ",
		c.Kaggle.Username, mask(c.Kaggle.Key), c.Kaggle.APIURL)
	fmt.Fprintf(&b, "Database: {URL: %s, TablePrefix: %q}, ", mask(c.Database.URL), c.Database.TablePrefix)
	fmt.Fprintf(&b, "Server: {Enabled: %v, Addr: %q}, ", c.Server.Enabled, c.Server.Addr())
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
