package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc resolves an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// SubstituteEnv replaces every ${VAR} reference in raw config text with the
// value of VAR. Comment lines are left untouched. Unset variables are
// collected and reported together.
func SubstituteEnv(raw string, lookup LookupFunc) (string, error) {
	missing := map[string]struct{}{}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines[i] = envRefPattern.ReplaceAllStringFunc(line, func(ref string) string {
			name := envRefPattern.FindStringSubmatch(ref)[1]
			value, ok := lookup(name)
			if !ok {
				missing[name] = struct{}{}
				return ref
			}
			return value
		})
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, strings.Join(names, ", "))
	}

	return strings.Join(lines, "\n"), nil
}
