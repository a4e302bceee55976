// Package docstore stores generated resume documents in S3. Objects are
// tagged with both the recruiter's and the candidate's identity; a signed-URL
// request succeeds only when the requester matches one of the two tags.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Ownership tag keys attached to every uploaded resume.
const (
	TagRecruiterID = "recruiter_id"
	TagJobSeekerID = "job_seeker_id"
)

// ErrNotOwner is returned when the requester matches neither ownership tag.
var ErrNotOwner = errors.New("requester does not own this document")

// Options configures the S3 connection. Endpoint and PathStyle exist for
// localstack/minio setups.
type Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	PathStyle    bool
	SignedURLTTL time.Duration
}

// Store is the S3-backed document store.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
}

// New builds the store from AWS default credentials plus the given options.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("docstore: bucket is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: opts.PathStyle,
					SigningRegion:     opts.Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
	})
	ttl := opts.SignedURLTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		urlTTL:  ttl,
	}, nil
}

// Put uploads a document under key with the given ownership tags.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string, tags map[string]string) error {
	values := url.Values{}
	for k, v := range tags {
		values.Set(k, v)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Tagging:     aws.String(values.Encode()),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// SignedURL verifies the requester against the object's ownership tags and
// returns a short-lived GET URL. A requester matching neither tag gets ErrNotOwner.
func (s *Store) SignedURL(ctx context.Context, key, requesterID string) (string, error) {
	if strings.TrimSpace(requesterID) == "" {
		return "", ErrNotOwner
	}
	tagging, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get object tagging %s: %w", key, err)
	}
	owned := false
	for _, tag := range tagging.TagSet {
		if tag.Key == nil || tag.Value == nil {
			continue
		}
		if (*tag.Key == TagRecruiterID || *tag.Key == TagJobSeekerID) && *tag.Value == requesterID {
			owned = true
			break
		}
	}
	if !owned {
		return "", ErrNotOwner
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
