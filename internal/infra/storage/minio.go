package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
)

// Store keeps analysis reports as JSON objects under <kind>/<id>.json
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// ObjectKey returns the object name for a stored report
func ObjectKey(kind report.Kind, id string) string {
	return path.Join(string(kind), id+".json")
}

// Put uploads a report once; an existing object is never replaced
func (s *Store) Put(ctx context.Context, kind report.Kind, id string, payload []byte) error {
	key := ObjectKey(kind, id)
	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return report.ErrAlreadyExists
	}
	if !isNotFound(err) {
		return fmt.Errorf("stat %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	log.Printf("store: uploaded bucket=%s key=%s bytes=%d", s.bucketName, key, len(payload))
	return nil
}

func (s *Store) Get(ctx context.Context, kind report.Kind, id string) ([]byte, error) {
	key := ObjectKey(kind, id)
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, report.ErrNotFound
		}
		return nil, err
	}
	defer obj.Close()

	// GetObject is lazy, the missing-key error surfaces on first read
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, report.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Check verifies the bucket is reachable
func (s *Store) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucketName)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return true
	}
	return false
}
