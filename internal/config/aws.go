package config

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// InitCfg loads the AWS configuration using the ambient credentials
// and the given region
func InitCfg(region string) (aws.Config, error) {
	return config.LoadDefaultConfig(
		context.Background(),
		config.WithRegion(region),
	)
}

// InitLocalCfg loads an AWS configuration pointing at localstack,
// with static dummy credentials
func InitLocalCfg() (aws.Config, error) {
	localstackEndpointResolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: "https://127.0.0.1:4566",
		}, nil
	})

	localstackCredentialsResolver := aws.CredentialsProviderFunc(func(context context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "dummyKey",
			SecretAccessKey: "dummyKey",
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithEndpointResolver(localstackEndpointResolver),
		config.WithCredentialsProvider(localstackCredentialsResolver),
	)
	if err != nil {
		return aws.Config{}, err
	}

	// localstack serves a self-signed certificate
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	cfg.HTTPClient = &http.Client{Transport: tr}

	return cfg, nil
}
