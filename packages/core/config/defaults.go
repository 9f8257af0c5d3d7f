package config

// DefaultFlagEnv is the environment variable that carries the per-run token.
const DefaultFlagEnv = "FLAG"

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		Jobs:       0,
		FlagEnv:    DefaultFlagEnv,
		Timeout:    0,
		LaunchRate: 0,
		PassEnv:    nil,
		EnvFile:    "",
		Reporters:  []string{"console"},
		OutputDir:  "",
		NoColor:    BoolPtr(false),
		Verbose:    BoolPtr(false),
	}
}

// IsDefault returns true if the settings match defaults
func (s *Settings) IsDefault() bool {
	defaults := DefaultSettings()
	return s.Jobs == defaults.Jobs &&
		s.FlagEnv == defaults.FlagEnv &&
		s.Timeout == defaults.Timeout &&
		s.LaunchRate == defaults.LaunchRate &&
		len(s.PassEnv) == 0 &&
		s.EnvFile == defaults.EnvFile &&
		s.OutputDir == defaults.OutputDir &&
		s.GetNoColor() == defaults.GetNoColor() &&
		s.GetVerbose() == defaults.GetVerbose()
}
