package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const defaultCacheTTL = 5 * time.Minute

// apiKeyFields are the keys tried, in order, in a JSON secret holding an API key
var apiKeyFields = []string{"api_key", "apiKey", "x-api-key"}

// SecretValue represents a generic secret value
type SecretValue map[string]string

// API is the subset of the Secrets Manager client used here
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type cachedSecret struct {
	Raw       string
	ExpiresAt time.Time
}

// Manager reads secrets from AWS Secrets Manager and caches them for the
// lifetime of a warm Lambda container, bounded by a TTL.
type Manager struct {
	client    API
	logger    *slog.Logger
	cache     map[string]*cachedSecret
	cacheLock sync.RWMutex
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewManager creates a new secrets manager with caching
func NewManager(cfg aws.Config, logger *slog.Logger) *Manager {
	return NewManagerWithClient(secretsmanager.NewFromConfig(cfg), logger)
}

// NewManagerWithClient creates a manager around an existing client
func NewManagerWithClient(client API, logger *slog.Logger) *Manager {
	return &Manager{
		client:   client,
		logger:   logger,
		cache:    make(map[string]*cachedSecret),
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
	}
}

// GetSecretString returns the raw secret string
func (m *Manager) GetSecretString(ctx context.Context, secretName string) (string, error) {
	if cached := m.getFromCache(secretName); cached != nil {
		m.logger.DebugContext(ctx, "secret cache hit", slog.String("secret_name", "[REDACTED]"))
		return cached.Raw, nil
	}

	m.logger.DebugContext(ctx, "secret cache miss, fetching from AWS", slog.String("secret_name", "[REDACTED]"))

	result, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to retrieve secret",
			slog.String("error", err.Error()),
			// SECURITY: Never log secret name in production
			slog.String("secret_name", "[REDACTED]"),
		)
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret has no string value")
	}

	m.putInCache(secretName, *result.SecretString)
	return *result.SecretString, nil
}

// GetSecret retrieves a JSON object secret
func (m *Manager) GetSecret(ctx context.Context, secretName string) (SecretValue, error) {
	raw, err := m.GetSecretString(ctx, secretName)
	if err != nil {
		return nil, err
	}

	var secretValue SecretValue
	if err := json.Unmarshal([]byte(raw), &secretValue); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	return secretValue, nil
}

// GetAPIKey returns an API key stored either as a plain string or as a JSON
// object with an api_key field.
func (m *Manager) GetAPIKey(ctx context.Context, secretName string) (string, error) {
	raw, err := m.GetSecretString(ctx, secretName)
	if err != nil {
		return "", err
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", fmt.Errorf("secret is empty")
		}
		return raw, nil
	}

	var secretValue SecretValue
	if err := json.Unmarshal([]byte(raw), &secretValue); err != nil {
		return "", fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	for _, field := range apiKeyFields {
		if v := secretValue[field]; v != "" {
			// SECURITY: Never log credentials
			m.logger.DebugContext(ctx, "API key retrieved", slog.String("secret_name", "[REDACTED]"))
			return v, nil
		}
	}
	return "", fmt.Errorf("secret missing required field (api_key)")
}

func (m *Manager) getFromCache(secretName string) *cachedSecret {
	m.cacheLock.RLock()
	defer m.cacheLock.RUnlock()

	cached, exists := m.cache[secretName]
	if !exists || m.now().After(cached.ExpiresAt) {
		return nil
	}
	return cached
}

func (m *Manager) putInCache(secretName, raw string) {
	m.cacheLock.Lock()
	defer m.cacheLock.Unlock()

	m.cache[secretName] = &cachedSecret{
		Raw:       raw,
		ExpiresAt: m.now().Add(m.cacheTTL),
	}
}

// ClearCache clears all cached secrets
func (m *Manager) ClearCache() {
	m.cacheLock.Lock()
	defer m.cacheLock.Unlock()

	m.cache = make(map[string]*cachedSecret)
	m.logger.Debug("secret cache cleared")
}

// GetCacheSize returns the number of cached secrets
func (m *Manager) GetCacheSize() int {
	m.cacheLock.RLock()
	defer m.cacheLock.RUnlock()

	return len(m.cache)
}
