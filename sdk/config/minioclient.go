// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient is the minio-go flavour of the object store, selected with Client: "minio".
type MinioClient struct {
	client *minio.Client
	region string
}

func NewMinioClient(cfgCreds S3Config) (*MinioClient, error) {
	host, secure, err := splitEndpoint(cfgCreds.EndpointURL)
	if err != nil {
		return nil, err
	}

	region := cfgCreds.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfgCreds.AccessKey, cfgCreds.SecretKey, cfgCreds.AccessToken),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}
	return &MinioClient{client: client, region: region}, nil
}

// splitEndpoint turns http(s)://host:port into the host and TLS flag minio-go expects.
func splitEndpoint(endpoint string) (string, bool, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}

func (c *MinioClient) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("failed to probe bucket %q: %w", bucket, err)
	}
	if exists {
		return false, nil
	}
	if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return false, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return true, nil
}

func (c *MinioClient) UploadFile(ctx context.Context, bucket, key, localPath string, hook *ProgressHook) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat error: %w", err)
	}
	size := info.Size()

	hook.start(key, size)
	start := time.Now()

	_, err = c.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		Progress:    &progressSink{pw: hook.writer(key, size)},
	})
	if err != nil {
		return fmt.Errorf("upload error: %w", err)
	}

	hook.done(key, size, time.Since(start))
	return nil
}

func (c *MinioClient) DownloadFile(ctx context.Context, bucket, key, localPath string, hook *ProgressHook) error {
	st, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return fmt.Errorf("%w: %s: %w", ErrBucketNotFound, bucket, err)
		}
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return fmt.Errorf("object s3://%s/%s not found: %w", bucket, key, err)
		}
		return fmt.Errorf("failed to stat object: %w", err)
	}

	hook.start(key, st.Size)
	start := time.Now()

	if err := c.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to get object: %w", err)
	}

	hook.done(key, st.Size, time.Since(start))
	return nil
}

// progressSink is handed to minio-go as PutObjectOptions.Progress: the client
// reads from it as many bytes as it has just uploaded.
type progressSink struct {
	pw *progressWriter
}

func (s *progressSink) Read(p []byte) (int, error) {
	return s.pw.Write(p)
}
