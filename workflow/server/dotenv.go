// ABOUTME: Minimal .env file loader that seeds environment variables from KEY=VALUE pairs.
// ABOUTME: Skips comments and blank lines, strips matching quotes, and never overrides existing vars.
package server

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv reads a .env file and sets each KEY=VALUE pair that is not
// already present in the environment, so explicit env vars always win over
// file defaults. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseEnvLine extracts a KEY=VALUE pair from one line. Comments, blank
// lines, and lines without '=' report ok=false. Values wrapped in matching
// single or double quotes are unwrapped.
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}

	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}

	value = strings.TrimSpace(line[idx+1:])
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}
