package procutil

import (
	"os"
	"strconv"
	"strings"
)

// EnvVar is the name of an environment variable.
type EnvVar string

// LookupBoolEnv returns the boolean value of the environment variable, or
// defaultValue if it is unset or not a boolean.
func LookupBoolEnv(name EnvVar, defaultValue bool) bool {
	if val, ok := os.LookupEnv(string(name)); ok {
		switch strings.ToLower(val) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	}
	return defaultValue
}

// LookupIntEnv returns the integer value of the environment variable, or
// defaultValue if it is unset or malformed.
func LookupIntEnv(name EnvVar, defaultValue int) int {
	if val, ok := os.LookupEnv(string(name)); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultValue
}

// LookupEnv is os.LookupEnv for an EnvVar.
func LookupEnv(name EnvVar) (string, bool) {
	return os.LookupEnv(string(name))
}
