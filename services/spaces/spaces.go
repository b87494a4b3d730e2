package spaces

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// deleteBatchSize is the S3 DeleteObjects limit per request
const deleteBatchSize = 1000

// DocumentStore persists filing PDFs in a Spaces bucket. Keys are
// deterministic per document, so re-running an interrupted upload step
// overwrites the same object instead of stranding half-uploaded copies
// under fresh keys.
type DocumentStore struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
}

// Config holds the Spaces connection settings
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// StoredFiling describes where a filing ended up
type StoredFiling struct {
	Key string
	URL string
}

// NewDocumentStore creates the filing blob store
func NewDocumentStore(config Config) (*DocumentStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &DocumentStore{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: config.Endpoint,
	}, nil
}

// filingKey builds the deterministic object key for one document
func filingKey(projectID, documentID uuid.UUID, filename string) string {
	name := sanitizeFilename(filename)
	return fmt.Sprintf("filings/%s/%s/%s", projectID, documentID, name)
}

// sanitizeFilename strips path separators and query junk that scraped
// filenames sometimes carry
func sanitizeFilename(filename string) string {
	if i := strings.IndexAny(filename, "?#"); i >= 0 {
		filename = filename[:i]
	}
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	if filename == "" || filename == "." {
		filename = "document.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	return filename
}

// StoreFiling uploads one PDF under the document's key and returns the key
// and public URL. Content that does not look like a PDF is rejected before
// anything is written.
func (d *DocumentStore) StoreFiling(ctx context.Context, projectID, documentID uuid.UUID, filename string, data []byte) (StoredFiling, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return StoredFiling{}, fmt.Errorf("refusing to store %s: content is not a PDF", filename)
	}

	key := filingKey(projectID, documentID, filename)
	_, err := d.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ACL:           aws.String("public-read"),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return StoredFiling{}, fmt.Errorf("failed to store filing %s: %w", filename, err)
	}

	return StoredFiling{Key: key, URL: d.filingURL(key)}, nil
}

// FetchFiling reads a stored filing back by key
func (d *DocumentStore) FetchFiling(ctx context.Context, key string) ([]byte, error) {
	result, err := d.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filing %s: %w", key, err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

// RemoveProjectFilings deletes every blob stored under the project's
// prefix. Used when a project is deleted so blob storage does not keep
// filings whose rows are gone.
func (d *DocumentStore) RemoveProjectFilings(ctx context.Context, projectID uuid.UUID) error {
	prefix := fmt.Sprintf("filings/%s/", projectID)

	var continuation *string
	for {
		listed, err := d.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(d.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return fmt.Errorf("failed to list filings for project %s: %w", projectID, err)
		}
		if len(listed.Contents) == 0 {
			return nil
		}

		objects := make([]*s3.ObjectIdentifier, 0, deleteBatchSize)
		for _, obj := range listed.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
		}
		_, err = d.s3Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete filings for project %s: %w", projectID, err)
		}

		if listed.IsTruncated == nil || !*listed.IsTruncated {
			return nil
		}
		continuation = listed.NextContinuationToken
	}
}

// filingURL returns the public URL for a stored filing
func (d *DocumentStore) filingURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", d.bucket, d.endpoint, key)
}
