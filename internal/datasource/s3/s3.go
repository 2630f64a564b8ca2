// Package s3 implements the "s3" loader scheme: s3://bucket/key objects are
// fetched with GetObject from AWS S3 or any S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/loader"
	"tabular/internal/system"
)

// Control keys read by the s3 loader. Unset credentials fall back to the
// default AWS credential chain.
const (
	ControlRegion    = "s3Region"
	ControlEndpoint  = "s3Endpoint"
	ControlPathStyle = "s3PathStyle"
	ControlAccessKey = "s3AccessKeyId"
	ControlSecretKey = "s3SecretAccessKey"
)

func init() {
	system.Default.RegisterLoader("s3", func(spec system.Spec) (system.Loader, error) {
		src, err := NewSource(spec.Location.Fullpath, spec.Control)
		if err != nil {
			return nil, err
		}
		return loader.New(spec, src, true), nil
	})
}

// getObjectAPI is the slice of *s3.Client the source uses.
type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ClientConfig configures an S3 client.
type ClientConfig struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
	Credentials  aws.CredentialsProvider
}

// NewClient builds an *s3.Client from cfg on top of the default AWS config.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Credentials != nil {
		opts = append(opts, awsconfig.WithCredentialsProvider(cfg.Credentials))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Source reads one object.
type Source struct {
	bucket string
	key    string
	cfg    ClientConfig

	// client is built lazily in Open unless injected.
	client getObjectAPI
}

// NewSource parses an s3://bucket/key URL and reads client settings from
// control.
func NewSource(rawURL string, control config.Options) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return nil, errs.New(errs.CodeSource, "invalid s3 url %q", rawURL)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, errs.New(errs.CodeSource, "s3 url %q has no object key", rawURL)
	}

	region := control.String(ControlRegion, os.Getenv("AWS_REGION"))
	if region == "" {
		region = "us-east-1"
	}
	cfg := ClientConfig{
		Region:       region,
		Endpoint:     control.String(ControlEndpoint, ""),
		UsePathStyle: control.Bool(ControlPathStyle, false),
	}
	if id := control.String(ControlAccessKey, ""); id != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(id, control.String(ControlSecretKey, ""), "")
	}
	return &Source{bucket: u.Host, key: key, cfg: cfg}, nil
}

// Open fetches the object body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.client == nil {
		c, err := NewClient(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
		s.client = c
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errs.New(errs.CodeSource, "s3://%s/%s not found", s.bucket, s.key)
		}
		return nil, fmt.Errorf("s3: get object: %w", err)
	}
	return out.Body, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}
