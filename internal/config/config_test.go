package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_EmbeddingModelWithoutDimensions(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{
			Model: "colbert-small",
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for model without dimensions")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Engine.KeyPrefix != "mv:" {
		t.Errorf("expected KeyPrefix='mv:', got %q", cfg.Engine.KeyPrefix)
	}
	if cfg.Engine.RerankWorkers != 8 {
		t.Errorf("expected RerankWorkers=8, got %d", cfg.Engine.RerankWorkers)
	}
	if cfg.Engine.MaxBatchSize != 100 {
		t.Errorf("expected MaxBatchSize=100, got %d", cfg.Engine.MaxBatchSize)
	}
	if cfg.Engine.MaxPayloadBytes != 2<<20 {
		t.Errorf("expected MaxPayloadBytes=%d, got %d", 2<<20, cfg.Engine.MaxPayloadBytes)
	}
	if cfg.Engine.Stage1TimeoutMS != 2000 {
		t.Errorf("expected Stage1TimeoutMS=2000, got %d", cfg.Engine.Stage1TimeoutMS)
	}
	if cfg.Engine.Stage2TimeoutMS != 5000 {
		t.Errorf("expected Stage2TimeoutMS=5000, got %d", cfg.Engine.Stage2TimeoutMS)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Engine: EngineConfig{
			KeyPrefix:       "custom:",
			RerankWorkers:   4,
			MaxBatchSize:    50,
			MaxPayloadBytes: 1024,
			EmbedTimeoutMS:  500,
			Stage1TimeoutMS: 100,
			Stage2TimeoutMS: 200,
		},
		Index: IndexConfig{HNSWM: 16, HNSWEFConstruct: 200},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Engine.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Engine.KeyPrefix)
	}
	if cfg.Engine.RerankWorkers != 4 {
		t.Errorf("expected RerankWorkers=4, got %d", cfg.Engine.RerankWorkers)
	}
	if cfg.Engine.Stage1TimeoutMS != 100 {
		t.Errorf("expected Stage1TimeoutMS=100, got %d", cfg.Engine.Stage1TimeoutMS)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MV_TEST_PASSWORD", "s3cret")

	in := []byte("password: ${MV_TEST_PASSWORD}\nmodel: ${MV_TEST_MODEL:-colbert-small}\n")
	out := string(expandEnvVars(in))

	want := "password: s3cret\nmodel: colbert-small\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
