package meta

import (
	"os"
	"regexp"
)

// envExpr matches ${env.KEY}; KEY may be empty.
var envExpr = regexp.MustCompile(`\$\{env\.([A-Za-z0-9_]*)\}`)

// expandEnvExpr substitutes ${env.KEY} with the KEY environment variable,
// or an empty string when unset. Malformed references stay literal.
func expandEnvExpr(value string) string {
	return envExpr.ReplaceAllStringFunc(value, func(match string) string {
		key := envExpr.FindStringSubmatch(match)[1]
		return os.Getenv(key)
	})
}
