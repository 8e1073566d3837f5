package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jrzesz33/bedrock_mac/internal/models"
)

const (
	defaultPollInterval     = 5 * time.Second
	defaultPollMaxAttempts  = 170
	defaultAgentReadTimeout = 1000 * time.Second
)

// Config holds all configuration for the application
type Config struct {
	// Stage is the deployment environment (dev, stage, prod)
	Stage models.Stage

	// AWS Configuration
	AWSRegion string
	AccountID string

	// S3 Configuration
	DataBucket string // Bucket holding loan applications and document extraction results

	// AppSync Configuration
	GraphQLEndpoint         string
	GraphQLAPIKeySecretName string // Used when the caller did not forward a bearer token

	// Bedrock Agent runtime Configuration
	AgentID          string
	AgentAliasID     string
	AgentReadTimeout time.Duration

	// Provisioning Configuration
	ProvisioningTableName string // DynamoDB journal of custom resource requests (optional)
	ProvisioningTopicArn  string // SNS topic for provisioning outcomes (optional)
	PollInterval          time.Duration
	PollMaxAttempts       int
	RollbackOnFailure     bool // Compensate completed agent create steps when a later step fails
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = "dev"
	}

	stageEnum := models.Stage(stage)
	if !stageEnum.IsValid() {
		return nil, fmt.Errorf("invalid STAGE value: %s (must be dev, stage, or prod)", stage)
	}

	awsRegion := os.Getenv("AWS_REGION")
	if awsRegion == "" {
		awsRegion = "us-east-1"
	}

	accountID := os.Getenv("ACCOUNT_ID")

	dataBucket := os.Getenv("DATA_BUCKET")
	if dataBucket == "" && accountID != "" {
		dataBucket = fmt.Sprintf("data-bucket-%s-%s", accountID, awsRegion)
	}

	// The resolver stack historically exported the endpoint in lower case
	graphQLEndpoint := os.Getenv("GRAPHQL_ENDPOINT")
	if graphQLEndpoint == "" {
		graphQLEndpoint = os.Getenv("graphql_endpoint")
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}

	pollMaxAttempts := defaultPollMaxAttempts
	if v := os.Getenv("POLL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid POLL_MAX_ATTEMPTS value: %s (must be a positive integer)", v)
		}
		pollMaxAttempts = n
	}

	agentReadTimeout, err := durationEnv("AGENT_READ_TIMEOUT", defaultAgentReadTimeout)
	if err != nil {
		return nil, err
	}

	rollback := false
	if v := os.Getenv("ROLLBACK_ON_FAILURE"); v != "" {
		rollback, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid ROLLBACK_ON_FAILURE value: %s", v)
		}
	}

	return &Config{
		Stage:                   stageEnum,
		AWSRegion:               awsRegion,
		AccountID:               accountID,
		DataBucket:              dataBucket,
		GraphQLEndpoint:         graphQLEndpoint,
		GraphQLAPIKeySecretName: os.Getenv("GRAPHQL_API_KEY_SECRET_NAME"),
		AgentID:                 os.Getenv("AGENT_ID"),
		AgentAliasID:            os.Getenv("AGENT_ALIAS_ID"),
		AgentReadTimeout:        agentReadTimeout,
		ProvisioningTableName:   os.Getenv("PROVISIONING_TABLE_NAME"),
		ProvisioningTopicArn:    os.Getenv("PROVISIONING_TOPIC_ARN"),
		PollInterval:            pollInterval,
		PollMaxAttempts:         pollMaxAttempts,
		RollbackOnFailure:       rollback,
	}, nil
}

// durationEnv parses a Go duration ("5s") or a plain number of seconds
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s value: %s", name, v)
	}
	return d, nil
}

// MustLoad loads configuration and panics if there's an error
// This is useful for Lambda handlers where configuration errors should prevent startup
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks the configuration shared by every function
func (c *Config) Validate() error {
	if !c.Stage.IsValid() {
		return fmt.Errorf("invalid stage: %s", c.Stage)
	}

	if c.AWSRegion == "" {
		return fmt.Errorf("AWS region is required")
	}

	if c.PollInterval <= 0 || c.PollMaxAttempts < 1 {
		return fmt.Errorf("poll interval and max attempts must be positive")
	}

	return nil
}

// ValidateResolver checks the configuration the AppSync resolver needs
func (c *Config) ValidateResolver() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AgentID == "" || c.AgentAliasID == "" {
		return fmt.Errorf("AGENT_ID and AGENT_ALIAS_ID are required")
	}
	if c.GraphQLEndpoint == "" {
		return fmt.Errorf("GRAPHQL_ENDPOINT is required")
	}
	return nil
}

// ValidateLoanActions checks the configuration the loan action group needs
func (c *Config) ValidateLoanActions() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DataBucket == "" {
		return fmt.Errorf("DATA_BUCKET or ACCOUNT_ID is required")
	}
	return nil
}

// IsDevelopment returns true if the stage is development
func (c *Config) IsDevelopment() bool {
	return c.Stage == models.StageDev
}

// IsStaging returns true if the stage is staging
func (c *Config) IsStaging() bool {
	return c.Stage == models.StageStage
}

// IsProduction returns true if the stage is production
func (c *Config) IsProduction() bool {
	return c.Stage == models.StageProd
}
