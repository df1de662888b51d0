package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	c := Config{
		DBHost:     "localhost",
		DBPort:     5433,
		DBUser:     "miner",
		DBPassword: "secret",
		DBName:     "themes",
	}
	assert.Equal(t,
		"host=localhost user=miner password=secret dbname=themes port=5433 sslmode=disable",
		c.DSN())
}

func TestDelays(t *testing.T) {
	c := Config{ExtractDelayMS: 4000, ChunkDelayMS: 3000, PassDelayMS: 2000}
	assert.Equal(t, 4*time.Second, c.ExtractDelay())
	assert.Equal(t, 3*time.Second, c.ChunkDelay())
	assert.Equal(t, 2*time.Second, c.PassDelay())
}

func TestArchiveEnabled(t *testing.T) {
	assert.False(t, (&Config{}).ArchiveEnabled())
	assert.True(t, (&Config{ArchiveS3Bucket: "papers"}).ArchiveEnabled())
}
