// Package secrets resolves exchange API credentials from AWS Secrets
// Manager. The secret value is a JSON document with "api-key" and
// "api-secret" fields.
package secrets

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/quantary/cryptobot/internal/types"
	"github.com/quantary/cryptobot/pkg/errors"
)

// SecretsAPI is the slice of the Secrets Manager client this package uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager retrieves and caches API credentials. Retrieval failures are
// transient (the caller's retry envelope re-runs them); a malformed secret is
// terminal.
type Manager struct {
	api SecretsAPI
	log *zap.Logger

	mu    sync.Mutex
	cache map[string]types.Credentials
}

// NewManager creates a Manager over the default AWS configuration.
func NewManager(ctx context.Context, log *zap.Logger) (*Manager, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSecretUnavailable, "cannot load AWS configuration", err)
	}

	return NewManagerWithClient(secretsmanager.NewFromConfig(awsCfg), log), nil
}

// NewManagerWithClient creates a Manager over an existing client.
func NewManagerWithClient(api SecretsAPI, log *zap.Logger) *Manager {
	return &Manager{
		api:   api,
		log:   log,
		cache: make(map[string]types.Credentials),
	}
}

// secretDocument is the JSON shape stored in Secrets Manager.
type secretDocument struct {
	APIKey    string `json:"api-key"`
	APISecret string `json:"api-secret"`
}

// Credentials returns the API key pair stored under secretName. The first
// successful retrieval is cached for the life of the process.
func (m *Manager) Credentials(ctx context.Context, secretName string) (types.Credentials, error) {
	if secretName == "" {
		return types.Credentials{}, errors.New(errors.ErrCodeMissingParameter, "secret name must be a non-empty string")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if creds, ok := m.cache[secretName]; ok {
		return creds, nil
	}

	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return types.Credentials{}, errors.Wrapf(errors.ErrCodeSecretUnavailable, err, "cannot retrieve secret %s", secretName)
	}

	if out.SecretString == nil || *out.SecretString == "" {
		return types.Credentials{}, errors.Newf(errors.ErrCodeSecretMalformed, "secret %s has no string payload", secretName)
	}

	var doc secretDocument
	if err := json.Unmarshal([]byte(*out.SecretString), &doc); err != nil {
		return types.Credentials{}, errors.Wrapf(errors.ErrCodeSecretMalformed, err, "secret %s is not valid JSON", secretName)
	}

	if doc.APIKey == "" || doc.APISecret == "" {
		return types.Credentials{}, errors.Newf(errors.ErrCodeSecretMalformed, "secret %s is missing api-key or api-secret", secretName)
	}

	creds := types.Credentials{APIKey: doc.APIKey, APISecret: doc.APISecret}
	m.cache[secretName] = creds

	m.log.Info("retrieved exchange credentials", zap.String("secret_name", secretName))

	return creds, nil
}
