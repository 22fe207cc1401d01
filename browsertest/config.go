package browsertest

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultTimeoutMS = 5000
	defaultHeadless  = true
	defaultSlowMoMS  = 0
)

// Config controls browser launch behavior. Values come from the environment
// so CI can flip them without code changes:
//
//	WEBPROBE_HEADLESS           "true"/"false" (default true)
//	WEBPROBE_BROWSER_TIMEOUT_MS default timeout for pages and contexts
//	WEBPROBE_SLOWMO_MS          delay between driver operations, for debugging
type Config struct {
	Headless  bool
	TimeoutMS float64
	SlowMoMS  float64
}

// ValidationError aggregates every configuration problem found.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("browser configuration invalid:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig reads browser options from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Headless:  defaultHeadless,
		TimeoutMS: DefaultTimeoutMS,
		SlowMoMS:  defaultSlowMoMS,
	}

	var problems []string

	if raw := os.Getenv("WEBPROBE_HEADLESS"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("WEBPROBE_HEADLESS: %q is not a boolean", raw))
		} else {
			cfg.Headless = v
		}
	}

	if raw := os.Getenv("WEBPROBE_BROWSER_TIMEOUT_MS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("WEBPROBE_BROWSER_TIMEOUT_MS: %q is not a number", raw))
		case v <= 0:
			problems = append(problems, fmt.Sprintf("WEBPROBE_BROWSER_TIMEOUT_MS: %v must be positive", v))
		default:
			cfg.TimeoutMS = v
		}
	}

	if raw := os.Getenv("WEBPROBE_SLOWMO_MS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("WEBPROBE_SLOWMO_MS: %q is not a number", raw))
		case v < 0:
			problems = append(problems, fmt.Sprintf("WEBPROBE_SLOWMO_MS: %v must not be negative", v))
		default:
			cfg.SlowMoMS = v
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Errors: problems}
	}
	return cfg, nil
}
