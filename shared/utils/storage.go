package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// AttachmentStorage issues tenant-scoped signed URLs for work-request file
// attachments. Callers gate every URL behind the permission guard; the
// object store itself is consumed as an opaque service.
type AttachmentStorage struct {
	client *s3.S3
	bucket string
	ttl    time.Duration
}

// NewAttachmentStorage builds a storage helper from environment config
func NewAttachmentStorage() (*AttachmentStorage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	bucket := os.Getenv("ATTACHMENTS_BUCKET")
	if bucket == "" {
		bucket = "talentbridge-attachments"
	}

	return &AttachmentStorage{
		client: s3.New(sess),
		bucket: bucket,
		ttl:    15 * time.Minute,
	}, nil
}

// attachmentKey scopes every object under its tenant and work request so
// store-level policies can mirror the application guard
func attachmentKey(tenantID, workRequestID uuid.UUID, filename string) string {
	return fmt.Sprintf("tenants/%s/work-requests/%s/%s", tenantID, workRequestID, filename)
}

// SignedUploadURL presigns a PUT for one attachment
func (as *AttachmentStorage) SignedUploadURL(tenantID, workRequestID uuid.UUID, filename string) (string, error) {
	req, _ := as.client.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(as.bucket),
		Key:    aws.String(attachmentKey(tenantID, workRequestID, filename)),
	})

	url, err := req.Presign(as.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload URL: %w", err)
	}
	return url, nil
}

// SignedDownloadURL presigns a GET for one attachment
func (as *AttachmentStorage) SignedDownloadURL(tenantID, workRequestID uuid.UUID, filename string) (string, error) {
	req, _ := as.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(as.bucket),
		Key:    aws.String(attachmentKey(tenantID, workRequestID, filename)),
	})

	url, err := req.Presign(as.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign download URL: %w", err)
	}
	return url, nil
}
