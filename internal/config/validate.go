package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTail(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.FilesDir) == "" {
		return errors.New("paths.files_dir must be set")
	}
	if c.Paths.FilesDir == c.Paths.LogDir {
		return errors.New("paths.log_dir must differ from paths.files_dir")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateTail() error {
	if err := ensurePositiveMap(map[string]int{
		"tail.max_lines":        c.Tail.MaxLines,
		"tail.chunk_size":       c.Tail.ChunkSize,
		"tail.poll_interval_ms": c.Tail.PollIntervalMS,
		"tail.read_limit":       c.Tail.ReadLimit,
	}); err != nil {
		return err
	}
	if c.Tail.DefaultLines < 0 {
		return errors.New("tail.default_lines must not be negative")
	}
	if c.Tail.DefaultLines > c.Tail.MaxLines {
		return fmt.Errorf("tail.default_lines (%d) exceeds tail.max_lines (%d)", c.Tail.DefaultLines, c.Tail.MaxLines)
	}
	return nil
}

func (c *Config) validateTransport() error {
	if err := ensurePositiveMap(map[string]int{
		"transport.send_buffer":           c.Transport.SendBuffer,
		"transport.ping_interval_seconds": c.Transport.PingIntervalSeconds,
		"transport.write_timeout_seconds": c.Transport.WriteTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Transport.MaxMessageBytes <= 0 {
		return errors.New("transport.max_message_bytes must be positive")
	}
	if c.Transport.MaxUploadBytes <= 0 {
		return errors.New("transport.max_upload_bytes must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
