package executor

import (
	"regexp"
	"strconv"
	"strings"
)

// referencePattern matches a single `{token}` reference. Two shapes are
// recognized: `{step_<i>_<fname>.<field>}` (a prior step's result field)
// and `{<arg_name>}` (a protocol-level argument).
var referencePattern = regexp.MustCompile(`\{([^{}]+)\}`)

// resolveMappings substitutes every reference token in mappings against
// stepResults (keyed step_<i>_<fname>) and arguments. A recognized
// reference that cannot be resolved yields nil; an expression that is not
// a bare reference passes through as a literal string.
func resolveMappings(mappings map[string]string, stepResults map[string]map[string]interface{}, arguments map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(mappings))
	for param, expr := range mappings {
		resolved[param] = resolveExpression(expr, stepResults, arguments)
	}
	return resolved
}

func resolveExpression(expr string, stepResults map[string]map[string]interface{}, arguments map[string]interface{}) interface{} {
	match := referencePattern.FindStringSubmatch(expr)
	if match == nil || match[0] != expr {
		// Not a bare `{token}` reference (or contains surrounding text);
		// treat the whole expression as a literal string.
		return expr
	}
	token := match[1]

	if idx := strings.LastIndex(token, "."); idx != -1 && strings.HasPrefix(token, "step_") {
		stepKey, field := token[:idx], token[idx+1:]
		if result, ok := stepResults[stepKey]; ok {
			if value, ok := result[field]; ok {
				return value
			}
		}
		return nil
	}

	if value, ok := arguments[token]; ok {
		return value
	}
	return nil
}

// mergeParameters builds the effective parameter map for a step: literal
// defaults, then resolved mappings, then runtime extras, each layer
// overriding the last.
func mergeParameters(literal map[string]interface{}, resolved map[string]interface{}, extras map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(literal)+len(resolved)+len(extras))
	for k, v := range literal {
		out[k] = v
	}
	for k, v := range resolved {
		out[k] = v
	}
	for k, v := range extras {
		out[k] = v
	}
	return out
}

// stepResultKey is the result-map key for step index i calling function f.
func stepResultKey(i int, function string) string {
	return "step_" + strconv.Itoa(i) + "_" + function
}
