package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings represents the flagrun runner configuration
type Settings struct {
	Jobs       int      `json:"jobs,omitempty"`       // 0 means one per CPU
	FlagEnv    string   `json:"flagEnv,omitempty"`    // environment variable carrying the token
	Timeout    int      `json:"timeout,omitempty"`    // milliseconds, 0 disables
	LaunchRate float64  `json:"launchRate,omitempty"` // subprocess launches per second, 0 disables
	PassEnv    []string `json:"passEnv,omitempty"`    // extra variables inherited by test programs
	EnvFile    string   `json:"envFile,omitempty"`
	Reporters  []string `json:"reporters,omitempty"`
	OutputDir  string   `json:"outputDir,omitempty"`
	NoColor    *bool    `json:"noColor,omitempty"`
	Verbose    *bool    `json:"verbose,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetNoColor returns the no color setting, defaulting to false
func (s *Settings) GetNoColor() bool {
	return getBool(s.NoColor, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (s *Settings) GetVerbose() bool {
	return getBool(s.Verbose, false)
}

// SettingsFilenames contains the possible settings file names
var SettingsFilenames = []string{
	".flagrun.config.json",
	"flagrun.config.json",
	".flagrunrc",
	".flagrunrc.json",
}

// LoadSettings loads settings from the specified path or searches for settings files
func LoadSettings(path string) (*Settings, error) {
	if path != "" {
		return loadSettingsFromFile(path)
	}

	return FindAndLoadSettings(".")
}

// FindAndLoadSettings searches for a settings file in the given directory
func FindAndLoadSettings(dir string) (*Settings, error) {
	for _, filename := range SettingsFilenames {
		settingsPath := filepath.Join(dir, filename)
		if _, err := os.Stat(settingsPath); err == nil {
			return loadSettingsFromFile(settingsPath)
		}
	}

	return DefaultSettings(), nil
}

func loadSettingsFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Merge merges other into s, with other taking precedence
func (s *Settings) Merge(other *Settings) *Settings {
	if other == nil {
		return s
	}

	result := *s

	if other.Jobs > 0 {
		result.Jobs = other.Jobs
	}
	if other.FlagEnv != "" {
		result.FlagEnv = other.FlagEnv
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.LaunchRate > 0 {
		result.LaunchRate = other.LaunchRate
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	if len(other.PassEnv) > 0 {
		result.PassEnv = append(append([]string(nil), s.PassEnv...), other.PassEnv...)
	}
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveSettings writes the settings to a file
func (s *Settings) SaveSettings(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
