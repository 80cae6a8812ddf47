package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ErrObjectNotFound is returned by Fetch and Delete when the requested key
// does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ClientMinio is the subset of the minio client used by the adapter. Narrowed
// so tests can substitute a fake.
type ClientMinio interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioWrapper adapts *minio.Client to ClientMinio. GetObject is shadowed so
// the interface can return a plain io.ReadCloser instead of *minio.Object.
type minioWrapper struct {
	*minio.Client
}

func (w minioWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	object, err := w.Client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return object, nil
}

type MinioS3Client struct {
	endpoint   string
	bucketName string
	client     ClientMinio
}

const defaultContentType = "application/octet-stream"

// NewMinioS3Client creates a new MinioS3Client instance bound to one bucket.
func NewMinioS3Client(endpoint, accessKeyID, secretAccessKey, bucketName string, useSSL bool) (*MinioS3Client, error) {

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("can not create minio client")
		return nil, fmt.Errorf("failed to create minio s3 client: %w", err)
	}

	return &MinioS3Client{
		endpoint:   endpoint,
		bucketName: bucketName,
		client:     minioWrapper{minioClient},
	}, nil
}

// EnsureBucket creates the configured bucket if it does not exist yet.
// A bucket already owned by the caller counts as success.
func (s3 *MinioS3Client) EnsureBucket(ctx context.Context) bool {
	exists, err := s3.client.BucketExists(ctx, s3.bucketName)
	if err != nil {
		log.Error().Err(err).Str("bucket", s3.bucketName).Msg("can not check bucket")
		return false
	}
	if exists {
		return true
	}
	if err := s3.client.MakeBucket(ctx, s3.bucketName, minio.MakeBucketOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return true
		}
		log.Error().Err(err).Str("bucket", s3.bucketName).Msg("can not create bucket")
		return false
	}
	return true
}

// MakePublic applies a permissive object-read policy to the bucket. Only used
// when objects are served directly from the store; cross-origin headers for
// the proxy route are handled by the web layer.
func (s3 *MinioS3Client) MakePublic(ctx context.Context) error {
	policy := fmt.Sprintf(`{
        "Version": "2012-10-17",
        "Statement": [{
            "Effect": "Allow",
            "Principal": {"AWS": ["*"]},
            "Action": ["s3:GetObject"],
            "Resource": ["arn:aws:s3:::%s/*"]
        }]
    }`, s3.bucketName)
	if err := s3.client.SetBucketPolicy(ctx, s3.bucketName, policy); err != nil {
		log.Error().Err(err).Str("bucket", s3.bucketName).Msg("can not set bucket policy")
		return fmt.Errorf("can not make bucket public: %w", err)
	}
	return nil
}

// Upload stores the object under the given hierarchical key.
func (s3 *MinioS3Client) Upload(ctx context.Context, key string, object io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s3.client.PutObject(ctx,
		s3.bucketName,
		key,
		object,
		size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload failed")
		return fmt.Errorf("can not upload object %s: %w", key, err)
	}
	return nil
}

// Fetch reads the object bytes and content type for the proxy route.
// Returns ErrObjectNotFound when the key is absent.
func (s3 *MinioS3Client) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	stat, err := s3.client.StatObject(ctx, s3.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("can not stat object %s: %w", key, err)
	}
	object, err := s3.client.GetObject(ctx, s3.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("can not get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("can not read object %s: %w", key, err)
	}
	contentType := stat.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return data, contentType, nil
}

// Delete removes one object. A key that never existed is reported as
// ErrObjectNotFound rather than a silent success.
func (s3 *MinioS3Client) Delete(ctx context.Context, key string) error {
	if _, err := s3.client.StatObject(ctx, s3.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("can not stat object %s: %w", key, err)
	}
	if err := s3.client.RemoveObject(ctx, s3.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		log.Error().Err(err).Str("key", key).Msg("remove failed")
		return fmt.Errorf("can not remove object %s: %w", key, err)
	}
	return nil
}

// ListByPrefix returns the keys stored under the given prefix, e.g.
// "username/" or "username/category/". A missing prefix yields an empty list.
func (s3 *MinioS3Client) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	result := make([]string, 0)

	objectCh := s3.client.ListObjects(ctx, s3.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			log.Error().Err(object.Err).Str("prefix", prefix).Msg("list failed")
			return result, object.Err
		}
		result = append(result, object.Key)
	}
	return result, nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
