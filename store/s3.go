package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	raven "github.com/getsentry/raven-go"
	"github.com/oklog/ulid/v2"
)

// An S3 store keeps document versions on AWS S3 (or anything speaking its
// API). Each version is one object under the key "<prefix><path>/<ulid>".
// Since ulids sort by creation time, the latest version of a path is the
// lexically greatest key under its prefix. The prefix allows a bucket to be
// shared with other uses.
//
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

var _ Store = &S3{}

// NewS3 creates a new S3 store using the given bucket. Prefix is prepended
// to all keys and may be empty.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{Client: client, Bucket: bucket, Prefix: prefix}
}

func (s *S3) versionKey(path, id string) string {
	return s.Prefix + path + "/" + id
}

// Exists reports whether any version object is stored under path.
func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.Bucket),
		Prefix:  aws.String(s.Prefix + path + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("s3 exists %s: %w", path, err)
	}
	return len(out.Contents) > 0, nil
}

// Put uploads data as a new version object under path.
func (s *S3) Put(ctx context.Context, path string, data []byte) (Version, error) {
	id := ulid.Make().String()
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.versionKey(path, id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		log.Println("S3 Put:", s.Prefix, path, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Path": path})
		return Version{}, fmt.Errorf("s3 put %s: %w", path, err)
	}
	return Version{
		ID:        id,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: ulid.Time(ulid.MustParse(id).Time()).UTC(),
	}, nil
}

// Latest returns the version of path with the greatest id.
func (s *S3) Latest(ctx context.Context, path string) (Version, error) {
	versions, err := s.listVersions(ctx, path)
	if err != nil {
		return Version{}, err
	}
	if len(versions) == 0 {
		return Version{}, ErrNotFound
	}
	return versions[len(versions)-1], nil
}

// Read downloads the bytes of the version with the given id under path.
func (s *S3) Read(ctx context.Context, path string, versionID string) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.versionKey(path, versionID)),
	})
	if err != nil {
		var nokey *types.NoSuchKey
		if errors.As(err, &nokey) {
			return nil, ErrNoVersion
		}
		log.Println("S3 Read:", s.Prefix, path, versionID, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Path": path})
		return nil, fmt.Errorf("s3 read %s: %w", path, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", path, err)
	}
	return data, nil
}

// ListKeys returns every distinct path with at least one version object.
func (s *S3) ListKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var result []string
	var token *string
	for {
		out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(s.Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			log.Println("S3 ListKeys:", s.Prefix, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
			return nil, fmt.Errorf("s3 list keys: %w", err)
		}
		for _, obj := range out.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.Prefix)
			// the ulid is always the final segment
			i := strings.LastIndex(key, "/")
			if i <= 0 {
				continue
			}
			path := key[:i]
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				result = append(result, path)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(result)
	return result, nil
}

// DeleteAll removes every version object under path.
func (s *S3) DeleteAll(ctx context.Context, path string) error {
	versions, err := s.listVersions(ctx, path)
	if err != nil {
		return err
	}
	for _, v := range versions {
		_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.versionKey(path, v.ID)),
		})
		if err != nil {
			log.Println("S3 DeleteAll:", s.Prefix, path, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Path": path})
			return fmt.Errorf("s3 delete %s: %w", path, err)
		}
	}
	return nil
}

// listVersions returns the versions of path in ascending id order.
func (s *S3) listVersions(ctx context.Context, path string) ([]Version, error) {
	prefix := s.Prefix + path + "/"
	var versions []Version
	var token *string
	for {
		out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 list versions %s: %w", path, err)
		}
		for _, obj := range out.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if strings.Contains(id, "/") {
				continue // a version of a longer path sharing this one as a prefix
			}
			created := time.Time{}
			if obj.LastModified != nil {
				created = obj.LastModified.UTC()
			}
			versions = append(versions, Version{
				ID:        id,
				Path:      path,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: created,
			})
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].ID < versions[j].ID })
	return versions, nil
}
