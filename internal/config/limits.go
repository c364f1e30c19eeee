package config

import "fmt"

// validateLimits ensures the numeric settings are usable
func validateLimits(c *Config) error {
	if c.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity cannot be negative, got %d (use 0 for unbounded)", c.CacheCapacity)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxDescriptorSize <= 0 {
		return fmt.Errorf("max_descriptor_size must be positive, got %d", c.MaxDescriptorSize)
	}
	if c.MaxPayloadSize <= 0 {
		return fmt.Errorf("max_payload_size must be positive, got %d", c.MaxPayloadSize)
	}
	return nil
}
