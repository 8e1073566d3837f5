package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrzesz33/bedrock_mac/internal/logging"
	"github.com/jrzesz33/bedrock_mac/internal/models"
	appconfig "github.com/jrzesz33/bedrock_mac/pkg/config"
)

func testRuntime(mutate func(*appconfig.Config)) *Runtime {
	cfg := &appconfig.Config{
		Stage:           models.StageDev,
		AWSRegion:       "us-east-1",
		PollInterval:    time.Second,
		PollMaxAttempts: 3,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, aws.Config{Region: "us-east-1"}, logging.NewWithWriter(&bytes.Buffer{}))
}

func TestProvisioningHandler(t *testing.T) {
	rt := testRuntime(nil)

	for _, kind := range []models.ResourceKind{models.ResourceKindDataAutomationProject, models.ResourceKindAgent} {
		h, err := rt.ProvisioningHandler(kind)
		require.NoError(t, err, kind)
		assert.NotNil(t, h)
	}

	_, err := rt.ProvisioningHandler("bucket")
	assert.ErrorContains(t, err, "unsupported resource kind")
}

func TestProvisioningRepository_OptionalTable(t *testing.T) {
	assert.Nil(t, testRuntime(nil).ProvisioningRepository())

	rt := testRuntime(func(c *appconfig.Config) { c.ProvisioningTableName = "journal" })
	assert.NotNil(t, rt.ProvisioningRepository())
}

func TestLoanActions_RequiresBucket(t *testing.T) {
	_, err := testRuntime(nil).LoanActions()
	assert.Error(t, err)

	actions, err := testRuntime(func(c *appconfig.Config) { c.DataBucket = "docs" }).LoanActions()
	require.NoError(t, err)
	assert.NotNil(t, actions)
}

func TestResolver_RequiresAgentAndEndpoint(t *testing.T) {
	_, err := testRuntime(nil).Resolver()
	assert.Error(t, err)

	h, err := testRuntime(func(c *appconfig.Config) {
		c.AgentID = "AGENT"
		c.AgentAliasID = "ALIAS"
		c.GraphQLEndpoint = "https://example/graphql"
		c.GraphQLAPIKeySecretName = "appsync-key"
	}).Resolver()
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestInvoiceActions(t *testing.T) {
	actions, err := testRuntime(nil).InvoiceActions()
	require.NoError(t, err)
	assert.NotNil(t, actions)
}
