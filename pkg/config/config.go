// Package config loads and validates the connd YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/angelfreak/connd/pkg/types"
)

// Known valid field names for each config section type
var (
	reservedKeys = map[string]bool{
		"daemon":  true,
		"policy":  true,
		"connect": true,
		"metrics": true,
	}

	validDaemonFields = map[string]bool{
		"bus-name":     true,
		"manager-path": true,
		"session-bus":  true,
	}

	validPolicyFields = map[string]bool{
		"allow-only-policy-networks": true,
		"blocked-hex-ssids":          true,
		"prohibited-technologies":    true,
		"configured-hex-ssids":       true,
	}

	validConnectFields = map[string]bool{
		"cert-load-timeout": true,
	}

	validMetricsFields = map[string]bool{
		"enabled": true,
		"listen":  true,
	}
)

// ValidationError represents a config validation error with suggestions
type ValidationError struct {
	Section    string
	Field      string
	Suggestion string
}

func (e ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown field '%s' in %s (did you mean '%s'?)", e.Field, e.Section, e.Suggestion)
	}
	return fmt.Sprintf("unknown field '%s' in %s", e.Field, e.Section)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "config validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(a)][len(b)]
}

// findSimilarField finds the most similar valid field name
func findSimilarField(field string, validFields map[string]bool) string {
	bestMatch := ""
	bestDistance := 3 // Max distance to consider as a typo

	for valid := range validFields {
		dist := levenshteinDistance(field, valid)
		if dist < bestDistance {
			bestDistance = dist
			bestMatch = valid
		} else if dist == bestDistance && bestMatch != "" {
			// Prefer the shorter field name, alphabetically first on ties
			if len(valid) < len(bestMatch) || (len(valid) == len(bestMatch) && valid < bestMatch) {
				bestMatch = valid
			}
		}
	}
	return bestMatch
}

// validateFields checks for unknown fields in a map against valid fields
func validateFields(section string, data map[string]interface{}, validFields map[string]bool) []ValidationError {
	var errors []ValidationError

	for field := range data {
		if !validFields[field] {
			suggestion := findSimilarField(field, validFields)
			errors = append(errors, ValidationError{
				Section:    section,
				Field:      field,
				Suggestion: suggestion,
			})
		}
	}
	return errors
}

// ValidateConfigFile validates a config file for unknown/misspelled fields
func ValidateConfigFile(path string) ValidationErrors {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // File read errors handled elsewhere
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil // Parse errors handled elsewhere
	}

	return validateRawConfig(raw)
}

// validateRawConfig validates a raw config map for unknown fields
func validateRawConfig(raw map[string]interface{}) ValidationErrors {
	var errors ValidationErrors

	sectionFields := map[string]map[string]bool{
		"daemon":  validDaemonFields,
		"policy":  validPolicyFields,
		"connect": validConnectFields,
		"metrics": validMetricsFields,
	}

	for key, value := range raw {
		fields, known := sectionFields[key]
		if !known {
			suggestion := findSimilarField(key, reservedKeys)
			errors = append(errors, ValidationError{
				Section:    "top level",
				Field:      key,
				Suggestion: suggestion,
			})
			continue
		}
		if sectionMap, ok := value.(map[string]interface{}); ok {
			errors = append(errors, validateFields(key, sectionMap, fields)...)
		}
	}

	return errors
}

// Manager loads and holds the configuration.
type Manager struct {
	config     *types.Config
	logger     types.Logger
	configPath string
}

// NewManager creates a new config manager
func NewManager(logger types.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// LoadConfig loads configuration from the specified path. Path "-" skips
// file loading, and a missing file yields defaults; both return a usable
// empty configuration.
func (m *Manager) LoadConfig(path string) (*types.Config, error) {
	if m.logger != nil {
		m.logger.Debug("LoadConfig called", "path", path)
	}

	if path == "-" {
		m.config = &types.Config{}
		return m.config, nil
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// Default to ~/.connd/config.yaml if no path specified
	if path == "" {
		home := os.Getenv("HOME")
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
		}
		path = filepath.Join(home, ".connd", "config.yaml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if m.logger != nil {
			m.logger.Debug("Config file does not exist, using defaults", "path", path)
		}
		m.config = &types.Config{}
		return m.config, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Set config type to yaml for files that might not have standard extensions
	if filepath.Ext(path) == ".example" || filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Validate config for unknown/misspelled fields
	if validationErrors := ValidateConfigFile(path); len(validationErrors) > 0 {
		return nil, validationErrors
	}

	var config types.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.configPath = path
	m.config = &config

	if m.logger != nil {
		m.logger.Debug("Config loaded", "path", path)
	}
	return &config, nil
}

// GetConfig returns the loaded configuration, or nil if none was loaded.
func (m *Manager) GetConfig() *types.Config {
	return m.config
}
