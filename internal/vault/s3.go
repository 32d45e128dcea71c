package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tt-go/internal/config"
	"tt-go/internal/tt"
)

// versionMetadataKey is the object metadata entry holding the replica version.
const versionMetadataKey = "tt-version"

// s3Client is the subset of *s3.Client the vault uses.
type s3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores replica snapshots as objects under
// <prefix>/replicas/<hostID>.db.age, with the version kept in the object
// metadata.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3Client
	uploader *manager.Uploader
}

// NewS3Vault builds an S3 client from the vault config. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client), nil
}

func newS3Vault(name, bucket, prefix string, client s3Client) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) replicaKey(hostID string) string {
	return path.Join(v.prefix, "replicas", hostID+".db.age")
}

func (v *S3Vault) PutReplica(ctx context.Context, hostID string, r io.Reader, size int64, version int64) error {
	counter := &countingReader{r: r}

	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(v.replicaKey(hostID)),
		Body:     counter,
		Metadata: map[string]string{versionMetadataKey: strconv.FormatInt(version, 10)},
	})
	if err != nil {
		return fmt.Errorf("uploading replica for host %s: %w", hostID, err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return nil
}

func (v *S3Vault) GetReplica(ctx context.Context, hostID string, w io.Writer) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.replicaKey(hostID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("replica not found for host: %s", hostID)
		}
		return fmt.Errorf("downloading replica for host %s: %w", hostID, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read replica: %w", err)
	}
	return nil
}

// GetReplicaVersion returns 0 if the object does not exist.
func (v *S3Vault) GetReplicaVersion(ctx context.Context, hostID string) (int64, error) {
	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.replicaKey(hostID)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading replica version for host %s: %w", hostID, err)
	}

	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, fmt.Errorf("replica for host %s has no version metadata", hostID)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	_, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ tt.Vault = (*S3Vault)(nil)
