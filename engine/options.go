package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AnglerfishChess/chess-uci-mcp/uci"
)

// validateOptions checks requested options against the engine's declared
// metadata. Names match case-insensitively but are applied with their
// declared spelling. Unknown names and values that violate the declared
// type are rejected with a per-name reason and never sent to the engine.
func validateOptions(declared []uci.OptionDecl, requested map[string]string) (map[string]string, map[string]string) {
	valid := make(map[string]string)
	errs := make(map[string]string)

	for name, value := range requested {
		decl, ok := findOption(declared, name)
		if !ok {
			errs[name] = "engine declares no such option"
			continue
		}
		canonical, err := checkOptionValue(decl, value)
		if err != nil {
			errs[name] = err.Error()
			continue
		}
		valid[decl.Name] = canonical
	}
	return valid, errs
}

func findOption(declared []uci.OptionDecl, name string) (uci.OptionDecl, bool) {
	for _, decl := range declared {
		if strings.EqualFold(decl.Name, name) {
			return decl, true
		}
	}
	return uci.OptionDecl{}, false
}

// checkOptionValue validates value against decl's type and returns the
// value to send, normalized where the type has canonical spellings.
func checkOptionValue(decl uci.OptionDecl, value string) (string, error) {
	switch decl.Type {
	case "check":
		lowered := strings.ToLower(strings.TrimSpace(value))
		if lowered != "true" && lowered != "false" {
			return "", fmt.Errorf("check option takes true or false, got %q", value)
		}
		return lowered, nil
	case "spin":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("spin option takes an integer, got %q", value)
		}
		if decl.Min != nil && n < *decl.Min {
			return "", fmt.Errorf("value %d below minimum %d", n, *decl.Min)
		}
		if decl.Max != nil && n > *decl.Max {
			return "", fmt.Errorf("value %d above maximum %d", n, *decl.Max)
		}
		return strconv.Itoa(n), nil
	case "combo":
		for _, v := range decl.Vars {
			if strings.EqualFold(v, strings.TrimSpace(value)) {
				return v, nil
			}
		}
		return "", fmt.Errorf("value %q not among %s", value, strings.Join(decl.Vars, ", "))
	case "button":
		if strings.TrimSpace(value) != "" {
			return "", fmt.Errorf("button option takes no value, got %q", value)
		}
		return "", nil
	default:
		// string options (and unrecognized types) accept anything
		return value, nil
	}
}
