package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"marketscan/internal/marketapi"
)

// MinioArchiver stores raw upstream payload batches in object storage so a
// reconciliation day can be replayed without refetching.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &MinioArchiver{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *MinioArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
	}
	return nil
}

func (a *MinioArchiver) StoreProductBatch(ctx context.Context, date time.Time, seq int, payloads []*marketapi.ProductPayload) error {
	data, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("marshaling payload batch: %w", err)
	}

	object := fmt.Sprintf("raw/products/%s/batch-%04d.json", date.Format("2006-01-02"), seq)
	_, err = a.client.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("storing %s: %w", object, err)
	}
	return nil
}
