package check

import (
	"fmt"
	"time"
)

// TargetSetting returns the required "target" key of a factory config.
func TargetSetting(config map[string]any) (string, error) {
	v, ok := config["target"]
	if !ok {
		return "", fmt.Errorf("config missing required key 'target'")
	}
	target, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("'target' must be a string, got %T", v)
	}
	return target, nil
}

// DurationSetting reads an optional duration, given either as a
// time.Duration or as a string for time.ParseDuration. The bool reports
// whether the key was present.
func DurationSetting(config map[string]any, key string) (time.Duration, bool, error) {
	v, ok := config[key]
	if !ok {
		return 0, false, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, true, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, true, fmt.Errorf("invalid %s %q: %w", key, d, err)
		}
		return parsed, true, nil
	}
	return 0, true, fmt.Errorf("'%s' must be a duration string, got %T", key, v)
}

// StringSetting reads an optional string key.
func StringSetting(config map[string]any, key string) (string, bool, error) {
	v, ok := config[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("'%s' must be a string, got %T", key, v)
	}
	return s, true, nil
}
