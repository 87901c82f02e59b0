package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"go.uber.org/zap"
)

// AWSConfig contains configuration for the AWS Secrets Manager backend
type AWSConfig struct {
	Region string

	// Optional: AWS profile name (for local development)
	Profile string

	// Optional: custom endpoint (for LocalStack testing)
	Endpoint string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultAWSConfig returns default configuration
func DefaultAWSConfig(region string) *AWSConfig {
	return &AWSConfig{
		Region:      region,
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type awsAdapter struct {
	client *secretsmanager.Client
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSAdapter creates an AWS Secrets Manager backend
func NewAWSAdapter(ctx context.Context, cfg *AWSConfig, logger *zap.Logger) (ports.SecretManager, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		loadOptions = append(loadOptions, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOptions := []func(*secretsmanager.Options){}
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager backend initialized",
		zap.String("region", cfg.Region),
		zap.Bool("cache_enabled", cfg.EnableCache))

	return &awsAdapter{
		client: secretsmanager.NewFromConfig(awsCfg, clientOptions...),
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func (a *awsAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		a.logger.Error("failed to retrieve secret", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	secret := &ports.Secret{
		Value:    aws.ToString(result.SecretString),
		Version:  aws.ToString(result.VersionId),
		Metadata: make(map[string]string),
	}
	if result.ARN != nil {
		secret.Metadata["arn"] = *result.ARN
	}

	a.cache.set(path, secret)
	return secret, nil
}

func (a *awsAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	result, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err != nil {
		// The secret may not exist yet.
		created, createErr := a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(path),
			SecretString: aws.String(value),
		})
		if createErr != nil {
			a.logger.Error("failed to create secret", zap.String("path", path), zap.Error(createErr))
			return "", fmt.Errorf("failed to create secret: %w", createErr)
		}
		a.cache.invalidate(path)
		return aws.ToString(created.VersionId), nil
	}

	a.cache.invalidate(path)
	return aws.ToString(result.VersionId), nil
}
