package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "999", Number(999))
	assert.Equal(t, "1,000", Number(1000))
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "-12,345", Number(-12345))
}

func TestSize(t *testing.T) {
	assert.Equal(t, "512B", Size(512))
	assert.Equal(t, "2.0KiB", Size(2048))
	assert.Equal(t, "13.0MiB", Size(13<<20))
	assert.Equal(t, "1.5GiB", Size(3<<29))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "0ms", Duration(time.Microsecond))
	assert.Equal(t, "12.5ms", Duration(12500*time.Microsecond))
	assert.Equal(t, "5.2s", Duration(5200*time.Millisecond))
	assert.Equal(t, "3m5.0s", Duration(3*time.Minute+5*time.Second))
}

func TestRate(t *testing.T) {
	assert.Equal(t, "12.50", Rate(12.5))
	assert.Equal(t, "12.34K", Rate(12340))
	assert.Equal(t, "2.00M", Rate(2e6))
}
