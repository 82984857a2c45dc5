package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultReferencePageSize, cfg.Ingest.ReferencePageSize)
	assert.Equal(t, DefaultDownsampleOffset, cfg.Ingest.DownsampleOffset)
	assert.Equal(t, DefaultDownsampleStride, cfg.Ingest.DownsampleStride)
	assert.Equal(t, DefaultResolverBaseURL, cfg.Resolver.BaseURL)
	assert.Equal(t, []string{DefaultOpenSearchAddress}, cfg.OpenSearch.Addresses)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Ingest.ReferencePageSize = 25
	cfg.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Ingest.ReferencePageSize)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestNewDefaultConfig_Validates(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.True(t, cfg.Ingest.ResolveNames)
	assert.True(t, cfg.Resolver.CacheEnabled)
	assert.NoError(t, cfg.Validate())
}
