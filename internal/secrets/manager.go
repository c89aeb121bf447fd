package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretsManagerAPI is the slice of the Secrets Manager client used here.
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ManagerSource reads private keys from AWS Secrets Manager.
type ManagerSource struct {
	client secretsManagerAPI
	region string
}

// NewManagerSource creates a Secrets Manager source for the given region.
func NewManagerSource(ctx context.Context, region string) (*ManagerSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Debug().Str("region", region).Msg("Secrets Manager source initialized")

	return &ManagerSource{
		client: secretsmanager.NewFromConfig(cfg),
		region: region,
	}, nil
}

// PrivateKey fetches the named secret and returns its PEM payload. String
// payloads go through the JSON unwrap; binary payloads are taken as UTF-8
// text directly.
func (s *ManagerSource) PrivateKey(ctx context.Context, name string) (string, error) {
	logger.Debug().
		Str("secret_name", name).
		Str("region", s.region).
		Msg("Retrieving secret from Secrets Manager")

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("secret_name", name).
			Str("region", s.region).
			Msg("Failed to read secret from Secrets Manager")
		return "", &StoreError{Name: name, Err: err}
	}

	if out.SecretString != nil {
		return unwrapPEM(*out.SecretString), nil
	}
	return string(out.SecretBinary), nil
}
