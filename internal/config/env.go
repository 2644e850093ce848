package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ProjectEnvFile is the per-directory env file name.
const ProjectEnvFile = ".scout.env"

// GlobalEnvPath returns the path of the env file shared by every project.
func GlobalEnvPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scout", "env")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "scout", "env")
}

// EnvFiles lists the env files scout reads, lowest precedence first.
func EnvFiles() []string {
	return []string{GlobalEnvPath(), ProjectEnvFile}
}

// LoadEnvFiles copies the variables from EnvFiles into the process
// environment and returns the names it set, sorted. A variable that is
// already set, even to "", is left untouched.
func LoadEnvFiles() []string {
	var set []string
	for k, v := range ReadEnvFiles(EnvFiles()...) {
		if _, present := os.LookupEnv(k); present {
			continue
		}
		if err := os.Setenv(k, v); err == nil {
			set = append(set, k)
		}
	}
	slices.Sort(set)
	return set
}

// ReadEnvFiles merges the variables of paths; later files override earlier
// ones. Missing or malformed files contribute nothing.
func ReadEnvFiles(paths ...string) map[string]string {
	merged := make(map[string]string)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		vars, err := ParseEnvFile(data)
		if err != nil {
			continue
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged
}

// ParseEnvFile parses KEY=VALUE lines. Blank lines and # comments are
// skipped, an "export " prefix is allowed, and double-quoted values are
// unquoted.
func ParseEnvFile(data []byte) (map[string]string, error) {
	vars := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=' in %q", n, line)
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			return nil, fmt.Errorf("line %d: empty variable name", n)
		}
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			u, err := strconv.Unquote(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", n, k, err)
			}
			v = u
		}
		vars[k] = v
	}
	return vars, sc.Err()
}
