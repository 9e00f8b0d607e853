package s3transfer

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/transfer/manager"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// Client downloads and uploads S3 objects.
// It is safe for concurrent use; its configuration is fixed at construction.
type Client struct {
	// s3Client is the object store every sub-request goes to
	s3Client s3api.S3API

	// config is the validated, immutable client configuration
	config transfertypes.Config

	// registry holds the listeners added with AddEventListener
	registry *events.Registry

	manager  *manager.Manager
	fetcher  *download.Fetcher
	uploader *upload.Uploader
	logger   *slog.Logger

	// fs is the filesystem abstraction for file operations
	fs fs.Filesystem
}

// New creates a client backed by the AWS SDK.
// Options are validated before any AWS configuration is loaded; credentials
// come from the default credential chain unless WithAWSConfig is given.
//
// Example:
//
//	client, err := s3transfer.New(
//	    s3transfer.WithRegion("us-west-2"),
//	    s3transfer.WithDownloadStrategy(transfertypes.StrategyRange),
//	)
func New(opts ...transfertypes.Option) (*Client, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	var awsCfg aws.Config
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
		}
		awsCfg, err = config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	// Apply region from options if specified, otherwise ensure a region is set
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewWithClient creates a client over a custom S3API implementation, such as
// a preconfigured *s3.Client or a test double.
func NewWithClient(s3Client s3api.S3API, opts ...transfertypes.Option) (*Client, error) {
	if s3Client == nil {
		return nil, &errors.ConfigError{Field: "s3Client", Value: nil, Reason: "must not be nil"}
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	return newClient(s3Client, cfg), nil
}

// NewWithMinio creates a client for an S3-compatible store reached through
// minio-go. endpoint is a host[:port] without scheme.
func NewWithMinio(endpoint, accessKey, secretKey string, secure bool, opts ...transfertypes.Option) (*Client, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, &errors.ConfigError{Field: "endpoint", Value: endpoint, Reason: "must not be empty"}
	}

	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewError("client initialization", err)
	}
	return newClient(s3api.NewMinioAPI(core), cfg), nil
}

func resolveConfig(opts []transfertypes.Option) (transfertypes.Config, error) {
	cfg := transfertypes.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validation.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	if cfg.Filesystem == nil {
		// Default to OS filesystem rooted at /
		cfg.Filesystem = billy.NewOSFS("/")
	}
	return cfg, nil
}

func newClient(s3Client s3api.S3API, cfg transfertypes.Config) *Client {
	registry := events.NewRegistry()
	fetcher := download.New(s3Client)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		s3Client: s3Client,
		config:   cfg,
		registry: registry,
		manager:  manager.New(fetcher, cfg, registry),
		fetcher:  fetcher,
		uploader: upload.New(s3Client),
		logger:   logger,
		fs:       cfg.Filesystem,
	}
}

// Config returns a copy of the client's resolved configuration.
func (c *Client) Config() transfertypes.Config {
	return c.config
}
