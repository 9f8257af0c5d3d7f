package config

import "fmt"

// ConfigError reports a missing or malformed challenge tree. Path is the
// dot-joined location of the offending node, empty for the document root.
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config: %s: %s", e.Path, msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Msg: fmt.Sprintf(format, args...)}
}
