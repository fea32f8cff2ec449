// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// multipartThreshold is the size above which uploads go through manager.Uploader.
const multipartThreshold = 100 * 1024 * 1024

// ErrBucketNotFound is returned when a read targets a bucket that does not exist.
var ErrBucketNotFound = errors.New("s3: bucket not found")

// S3API is the subset of *s3.Client used here; tests provide their own implementation.
type S3API interface {
	manager.UploadAPIClient

	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

type S3Client struct {
	s3 S3API
}

func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		cfgCreds.AccessKey,
		cfgCreds.SecretKey,
		cfgCreds.AccessToken,
	))

	region := cfgCreds.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Options := func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			o.UsePathStyle = true // necessario per MinIO e altri S3-compat
		}
	}

	return &S3Client{
		s3: s3.NewFromConfig(cfg, s3Options),
	}, nil
}

// NewS3ClientWithAPI wraps an existing S3API implementation.
func NewS3ClientWithAPI(api S3API) *S3Client {
	return &S3Client{s3: api}
}

/* -------------------- BUCKET -------------------- */

// EnsureBucket probes the bucket with HeadBucket and creates it when the probe
// reports it missing. Any other probe error is returned and nothing is created.
func (c *S3Client) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return false, nil
	}
	if !isBucketNotFound(err) {
		return false, fmt.Errorf("failed to probe bucket %q: %w", bucket, err)
	}

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return true, nil
}

// isBucketNotFound reports whether a HeadBucket error means "no such bucket".
// HeadBucket has no body, so besides the typed errors the bare 404 is checked too.
func isBucketNotFound(err error) bool {
	if errors.Is(err, ErrBucketNotFound) {
		return true
	}

	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

// isNoSuchBucket is stricter than isBucketNotFound: a bare 404 on GetObject
// usually means a missing key.
func isNoSuchBucket(err error) bool {
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

/* -------------------- PROGRESS HOOK -------------------- */

type ProgressHook struct {
	OnStart    func(key string, totalBytes int64)                     // chiamata una volta all’inizio
	OnProgress func(key string, written, totalBytes int64)            // chiamata periodicamente
	OnDone     func(key string, totalBytes int64, took time.Duration) // a fine file
}

func (h *ProgressHook) start(key string, total int64) {
	if h != nil && h.OnStart != nil {
		h.OnStart(key, total)
	}
}

func (h *ProgressHook) done(key string, total int64, took time.Duration) {
	if h != nil && h.OnDone != nil {
		h.OnDone(key, total, took)
	}
}

func (h *ProgressHook) writer(key string, total int64) *progressWriter {
	pw := &progressWriter{
		key:      key,
		total:    total,
		interval: 250 * time.Millisecond,
	}
	if h != nil {
		pw.onProgress = h.OnProgress
	}
	return pw
}

type progressWriter struct {
	key        string
	total      int64
	written    int64
	lastEmit   time.Time
	interval   time.Duration
	onProgress func(key string, written, total int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)
	now := time.Now()
	if pw.onProgress != nil && (pw.written == pw.total || now.Sub(pw.lastEmit) >= pw.interval) {
		pw.onProgress(pw.key, pw.written, pw.total)
		pw.lastEmit = now
	}
	return n, nil
}

// progressReader reports bytes read from a seekable body. The SDK may rewind the
// body (signing, retries), so a seek moves the counter back as well.
type progressReader struct {
	rs io.ReadSeeker
	pw *progressWriter
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.rs.Read(p)
	if n > 0 {
		_, _ = r.pw.Write(p[:n])
	}
	return n, err
}

func (r *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.rs.Seek(offset, whence)
	if err == nil {
		r.pw.written = pos
	}
	return pos, err
}

/* -------------------- DOWNLOAD -------------------- */

func (c *S3Client) DownloadFile(ctx context.Context, bucket, key, localPath string, hook *ProgressHook) error {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNoSuchBucket(err) {
			return fmt.Errorf("%w: %s: %w", ErrBucketNotFound, bucket, err)
		}
		return fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer out.Body.Close()

	total := aws.ToInt64(out.ContentLength)
	hook.start(key, total)

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create local dir: %w", err)
	}
	// the destination is replaced only once the whole object is on disk
	partPath := localPath + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	start := time.Now()
	tee := io.TeeReader(out.Body, hook.writer(key, total))

	if _, err := io.Copy(f, tee); err != nil {
		f.Close()
		os.Remove(partPath)
		return fmt.Errorf("failed to write to local file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("failed to write to local file: %w", err)
	}
	if err := os.Rename(partPath, localPath); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	hook.done(key, total, time.Since(start))
	return nil
}

/* -------------------- UPLOAD -------------------- */

// UploadFile sends localPath to bucket/key. Files above the multipart threshold
// go through manager.Uploader, smaller ones through a single PutObject.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key, localPath string, hook *ProgressHook) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat error: %w", err)
	}
	size := info.Size()

	// MIME
	header := make([]byte, 512)
	n, _ := file.Read(header)
	mime := http.DetectContentType(header[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind error: %w", err)
	}

	hook.start(key, size)
	start := time.Now()
	// il body deve restare seekable: su endpoint http l'SDK non accetta stream
	reader := &progressReader{rs: file, pw: hook.writer(key, size)}

	if size > multipartThreshold {
		_, err = manager.NewUploader(c.s3).Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        reader,
			ContentType: aws.String(mime),
		})
	} else {
		_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			Body:          reader,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(mime),
		})
	}
	if err != nil {
		return fmt.Errorf("upload error: %w", err)
	}

	hook.done(key, size, time.Since(start))
	return nil
}
