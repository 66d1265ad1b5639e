package config

// NewStub builds a Config over a fixed map, for tests.
func NewStub(values map[string]string) *Config {
	return New(func(key string) string {
		return values[key]
	})
}
