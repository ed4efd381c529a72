package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

type MinioStore struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// NewMinioStore connects to MinIO (or any S3 endpoint) and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, endpoint, region, bucket, prefix, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: cli, bucketName: bucket, prefix: prefix}, nil
}

func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := s.prefix + name

	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return "", fmt.Errorf("%s: %w", name, documents.ErrExists)
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", fmt.Errorf("stat object %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return name, nil
}

func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if validName(name) == nil {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	key := s.prefix + id
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", id, documents.ErrNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, nil
}

// contentType is a small lookup for the formats we expect to see
func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}
