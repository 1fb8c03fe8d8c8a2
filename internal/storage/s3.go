package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Store keeps uploads in an S3 bucket served from publicBase, which
// defaults to the bucket's virtual-hosted URL.
type S3Store struct {
	bucket     string
	publicBase string
	svc        s3iface.S3API
	uploader   s3manageriface.UploaderAPI
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds a store from the default AWS credential chain.
func NewS3Store(region, bucket, publicBase string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return NewS3StoreWithClients(bucket, publicBase, s3.New(sess), s3manager.NewUploader(sess)), nil
}

// NewS3StoreWithClients wires explicit clients.
func NewS3StoreWithClients(bucket, publicBase string, svc s3iface.S3API, uploader s3manageriface.UploaderAPI) *S3Store {
	return &S3Store{bucket: bucket, publicBase: publicBase, svc: svc, uploader: uploader}
}

func (s *S3Store) Upload(ctx context.Context, path string, body io.Reader, opts UploadOptions) error {
	if !opts.Upsert {
		exists, err := s.exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			return ErrObjectExists
		}
	}

	in := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   body,
	}
	if cc := cacheControlHeader(opts.CacheControl); cc != "" {
		in.CacheControl = aws.String(cc)
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.uploader.UploadWithContext(ctx, in); err != nil {
		return fmt.Errorf("storage: uploading %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) PublicURL(path string) string {
	return joinURL(s.publicBase, path)
}

func (s *S3Store) PathOf(publicURL string) (string, bool) {
	return pathFromURL(s.publicBase, publicURL)
}

func (s *S3Store) exists(ctx context.Context, path string) (bool, error) {
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("storage: checking %s: %w", path, err)
}
