package common

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	envPathStdin = "stdin"
)

// EnvMap resolves configuration values from a parsed env file. Without a
// file it defers to the process environment, so the service runs the same
// way under systemd (EnvironmentFile) and in a plain shell.
type EnvMap struct {
	path   string
	envMap map[string]string
}

// NewEnvMap loads the env file at path. An empty path means process
// environment only; the special path "stdin" parses dotenv syntax from
// standard input, which lets deployment scripts pipe secrets in.
func NewEnvMap(path string) (*EnvMap, error) {
	em := &EnvMap{path: path}

	switch {
	case path == envPathStdin:
		envMap, err := godotenv.Parse(os.Stdin)
		if err != nil {
			return nil, err
		}
		em.envMap = envMap
	case len(path) > 0:
		if err := em.Update(); err != nil {
			return nil, err
		}
	}

	return em, nil
}

// GetEx additionally reports whether the key resolved to a non-empty value.
func (em *EnvMap) GetEx(key string) (string, bool) {
	if em.envMap == nil {
		value := os.Getenv(key)
		return value, len(value) > 0
	}

	v, ok := em.envMap[key]
	return v, ok && len(v) > 0
}

func (em *EnvMap) Get(key string) string {
	v, _ := em.GetEx(key)
	return v
}

// Update re-reads the backing file. Values taken from stdin or the process
// environment have nothing to re-read and are kept as-is.
func (em *EnvMap) Update() error {
	if (len(em.path) == 0) || (em.path == envPathStdin) {
		return nil
	}

	envMap, err := godotenv.Read(em.path)
	if err != nil {
		return err
	}

	em.envMap = envMap

	return nil
}
