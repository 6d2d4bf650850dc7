package vm

import "time"

// Config limits what guest code may use.
type Config struct {
	// MemoryLimitPages caps the linear memory of a guest in 64KiB pages.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	// MaxCodeSize is the largest accepted code blob in bytes.
	MaxCodeSize int `yaml:"max_code_size"`
	// Timeout aborts a single deploy or call. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the limits used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		MemoryLimitPages: 256,
		MaxCodeSize:      1024 * 1024, // 1MB
		Timeout:          5 * time.Second,
	}
}
