package config

import (
	"os"
	"testing"
	"time"

	"github.com/jrzesz33/bedrock_mac/internal/models"
)

var configEnvVars = []string{
	"STAGE", "AWS_REGION", "ACCOUNT_ID", "DATA_BUCKET", "GRAPHQL_ENDPOINT", "graphql_endpoint",
	"GRAPHQL_API_KEY_SECRET_NAME", "AGENT_ID", "AGENT_ALIAS_ID", "AGENT_READ_TIMEOUT",
	"PROVISIONING_TABLE_NAME", "PROVISIONING_TOPIC_ARN", "POLL_INTERVAL", "POLL_MAX_ATTEMPTS",
	"ROLLBACK_ON_FAILURE",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		wantErr   bool
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "valid configuration with all env vars",
			envVars: map[string]string{
				"STAGE":                   "prod",
				"AWS_REGION":              "us-west-2",
				"ACCOUNT_ID":              "123456789012",
				"DATA_BUCKET":             "loan-docs",
				"GRAPHQL_ENDPOINT":        "https://example.appsync-api.us-west-2.amazonaws.com/graphql",
				"AGENT_ID":                "AGENT123",
				"AGENT_ALIAS_ID":          "ALIAS123",
				"PROVISIONING_TABLE_NAME": "journal",
				"POLL_INTERVAL":           "2s",
				"POLL_MAX_ATTEMPTS":       "10",
				"ROLLBACK_ON_FAILURE":     "true",
			},
			wantErr: false,
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Stage != models.StageProd {
					t.Errorf("Stage = %v, want %v", cfg.Stage, models.StageProd)
				}
				if cfg.DataBucket != "loan-docs" {
					t.Errorf("DataBucket = %v, want %v", cfg.DataBucket, "loan-docs")
				}
				if cfg.PollInterval != 2*time.Second {
					t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, 2*time.Second)
				}
				if cfg.PollMaxAttempts != 10 {
					t.Errorf("PollMaxAttempts = %v, want %v", cfg.PollMaxAttempts, 10)
				}
				if !cfg.RollbackOnFailure {
					t.Error("RollbackOnFailure = false, want true")
				}
				if err := cfg.ValidateResolver(); err != nil {
					t.Errorf("ValidateResolver() error = %v", err)
				}
			},
		},
		{
			name:    "defaults when optional vars not set",
			envVars: map[string]string{},
			wantErr: false,
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Stage != models.StageDev {
					t.Errorf("Stage = %v, want default %v", cfg.Stage, models.StageDev)
				}
				if cfg.AWSRegion != "us-east-1" {
					t.Errorf("AWSRegion = %v, want default %v", cfg.AWSRegion, "us-east-1")
				}
				if cfg.PollInterval != defaultPollInterval {
					t.Errorf("PollInterval = %v, want default %v", cfg.PollInterval, defaultPollInterval)
				}
				if cfg.PollMaxAttempts != defaultPollMaxAttempts {
					t.Errorf("PollMaxAttempts = %v, want default %v", cfg.PollMaxAttempts, defaultPollMaxAttempts)
				}
				if cfg.RollbackOnFailure {
					t.Error("RollbackOnFailure = true, want default false")
				}
				if cfg.DataBucket != "" {
					t.Errorf("DataBucket = %v, want empty without ACCOUNT_ID", cfg.DataBucket)
				}
			},
		},
		{
			name: "data bucket derived from account and region",
			envVars: map[string]string{
				"ACCOUNT_ID": "123456789012",
				"AWS_REGION": "eu-west-1",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				want := "data-bucket-123456789012-eu-west-1"
				if cfg.DataBucket != want {
					t.Errorf("DataBucket = %v, want %v", cfg.DataBucket, want)
				}
			},
		},
		{
			name: "lower case graphql endpoint fallback and seconds durations",
			envVars: map[string]string{
				"graphql_endpoint":   "https://legacy/graphql",
				"AGENT_READ_TIMEOUT": "30",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.GraphQLEndpoint != "https://legacy/graphql" {
					t.Errorf("GraphQLEndpoint = %v, want %v", cfg.GraphQLEndpoint, "https://legacy/graphql")
				}
				if cfg.AgentReadTimeout != 30*time.Second {
					t.Errorf("AgentReadTimeout = %v, want %v", cfg.AgentReadTimeout, 30*time.Second)
				}
			},
		},
		{
			name:    "invalid stage value",
			envVars: map[string]string{"STAGE": "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid poll attempts",
			envVars: map[string]string{"POLL_MAX_ATTEMPTS": "0"},
			wantErr: true,
		},
		{
			name:    "invalid poll interval",
			envVars: map[string]string{"POLL_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid rollback flag",
			envVars: map[string]string{"ROLLBACK_ON_FAILURE": "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range configEnvVars {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Stage:           models.StageDev,
			AWSRegion:       "us-east-1",
			DataBucket:      "bucket",
			GraphQLEndpoint: "https://example/graphql",
			AgentID:         "AGENT",
			AgentAliasID:    "ALIAS",
			PollInterval:    time.Second,
			PollMaxAttempts: 3,
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		validate func(*Config) error
		wantErr  bool
	}{
		{"valid config", func(*Config) {}, (*Config).Validate, false},
		{"invalid stage", func(c *Config) { c.Stage = "invalid" }, (*Config).Validate, true},
		{"missing aws region", func(c *Config) { c.AWSRegion = "" }, (*Config).Validate, true},
		{"zero poll attempts", func(c *Config) { c.PollMaxAttempts = 0 }, (*Config).Validate, true},
		{"resolver valid", func(*Config) {}, (*Config).ValidateResolver, false},
		{"resolver missing agent", func(c *Config) { c.AgentAliasID = "" }, (*Config).ValidateResolver, true},
		{"resolver missing endpoint", func(c *Config) { c.GraphQLEndpoint = "" }, (*Config).ValidateResolver, true},
		{"loan actions valid", func(*Config) {}, (*Config).ValidateLoanActions, false},
		{"loan actions missing bucket", func(c *Config) { c.DataBucket = "" }, (*Config).ValidateLoanActions, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := tt.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_EnvironmentChecks(t *testing.T) {
	tests := []struct {
		name          string
		stage         models.Stage
		isDevelopment bool
		isStaging     bool
		isProduction  bool
	}{
		{"dev environment", models.StageDev, true, false, false},
		{"staging environment", models.StageStage, false, true, false},
		{"production environment", models.StageProd, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Stage: tt.stage}

			if got := cfg.IsDevelopment(); got != tt.isDevelopment {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.isDevelopment)
			}
			if got := cfg.IsStaging(); got != tt.isStaging {
				t.Errorf("IsStaging() = %v, want %v", got, tt.isStaging)
			}
			if got := cfg.IsProduction(); got != tt.isProduction {
				t.Errorf("IsProduction() = %v, want %v", got, tt.isProduction)
			}
		})
	}
}
