package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrzesz33/bedrock_mac/internal/app"
	"github.com/jrzesz33/bedrock_mac/internal/logging"
	"github.com/jrzesz33/bedrock_mac/internal/models"
	appconfig "github.com/jrzesz33/bedrock_mac/pkg/config"
)

func stubRuntime(t *testing.T) {
	t.Helper()
	orig := loadRuntime
	loadRuntime = func(context.Context) (*app.Runtime, error) {
		cfg := &appconfig.Config{
			Stage:           models.StageDev,
			AWSRegion:       "us-east-1",
			PollInterval:    time.Second,
			PollMaxAttempts: 1,
		}
		return app.New(cfg, aws.Config{Region: "us-east-1"}, logging.NewWithWriter(&bytes.Buffer{})), nil
	}
	t.Cleanup(func() { loadRuntime = orig })
}

func writeEvent(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvoiceCommand(t *testing.T) {
	stubRuntime(t)
	path := writeEvent(t, map[string]any{
		"actionGroup": "invoices",
		"apiPath":     "/retrieve_vendor_list",
		"requestBody": map[string]any{},
	})

	out, err := run("invoice", path)
	require.NoError(t, err)

	var resp models.APIActionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1.0", resp.MessageVersion)
}

func TestCfnCommand_RejectsUnknownKind(t *testing.T) {
	stubRuntime(t)
	_, err := run("cfn", "bucket", writeEvent(t, map[string]any{}))
	assert.ErrorContains(t, err, "unknown resource kind")
}

func TestLoanCommand_RequiresBucket(t *testing.T) {
	stubRuntime(t)
	_, err := run("loan", writeEvent(t, map[string]any{"function": "record_dti"}))
	assert.Error(t, err)
}

func TestCommands_MissingEventFile(t *testing.T) {
	stubRuntime(t)
	_, err := run("resolver", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read event file")
}

func TestCommands_ArgCount(t *testing.T) {
	_, err := run("cfn", "agent")
	assert.Error(t, err)
}
