package secrets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type fakeSecrets struct {
	values map[string]string
	calls  int
	err    error
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func newTestManager(f *fakeSecrets) *Manager {
	return NewManagerWithClient(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestManager_GetAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{"plain string", "da2-plain\n", "da2-plain", false},
		{"json api_key", `{"api_key":"da2-json"}`, "da2-json", false},
		{"json apiKey", `{"apiKey":"da2-camel"}`, "da2-camel", false},
		{"json without key", `{"other":"x"}`, "", true},
		{"invalid json", `{"api_key":`, "", true},
		{"empty", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(&fakeSecrets{values: map[string]string{"gql": tt.secret}})
			got, err := m.GetAPIKey(context.Background(), "gql")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManager_Cache(t *testing.T) {
	f := &fakeSecrets{values: map[string]string{"gql": "key"}}
	m := newTestManager(f)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := m.GetSecretString(context.Background(), "gql"); err != nil {
			t.Fatalf("GetSecretString() error = %v", err)
		}
	}
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}
	if m.GetCacheSize() != 1 {
		t.Errorf("GetCacheSize() = %d, want 1", m.GetCacheSize())
	}

	now = now.Add(defaultCacheTTL + time.Second)
	if _, err := m.GetSecretString(context.Background(), "gql"); err != nil {
		t.Fatalf("GetSecretString() error = %v", err)
	}
	if f.calls != 2 {
		t.Errorf("calls after expiry = %d, want 2", f.calls)
	}

	m.ClearCache()
	if m.GetCacheSize() != 0 {
		t.Errorf("GetCacheSize() after clear = %d, want 0", m.GetCacheSize())
	}
}

func TestManager_Errors(t *testing.T) {
	m := newTestManager(&fakeSecrets{err: errors.New("access denied")})
	if _, err := m.GetSecret(context.Background(), "gql"); err == nil {
		t.Error("GetSecret() expected error")
	}

	m = newTestManager(&fakeSecrets{values: map[string]string{}})
	if _, err := m.GetSecretString(context.Background(), "missing"); err == nil {
		t.Error("GetSecretString() expected error for binary secret")
	}

	m = newTestManager(&fakeSecrets{values: map[string]string{"obj": `{"a":"b"}`}})
	v, err := m.GetSecret(context.Background(), "obj")
	if err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}
	if v["a"] != "b" {
		t.Errorf("GetSecret()[a] = %q, want b", v["a"])
	}
}
