package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/export"
)

// s3API is the subset of the S3 client the gallery uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object metadata keys.
const (
	metaName         = "card-name"
	metaSceneID      = "scene-id"
	metaSceneVersion = "scene-version"
)

// S3 saves cards as objects under "BirthdayCards/<entry id>".
type S3 struct {
	client s3API
	bucket string
}

// NewS3 wraps an existing client.
func NewS3(client s3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// NewS3FromEnv loads the default AWS configuration.
func NewS3FromEnv(ctx context.Context, bucket string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket), nil
}

func (s *S3) key(id string) string {
	return path.Join(AlbumName, id)
}

// Save implements Gallery. The export file is released after upload.
func (s *S3) Save(ctx context.Context, h *export.FileHandle) (Entry, error) {
	e := newEntry(h)
	key := s.key(e.ID)
	e.Location = "s3://" + s.bucket + "/" + key

	f, err := h.Open()
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(e.MIME),
		Metadata: map[string]string{
			metaName:         e.Name,
			metaSceneID:      e.SceneID,
			metaSceneVersion: strconv.FormatUint(e.SceneVersion, 10),
		},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upload card: %w", err)
	}
	f.Close()
	h.Release()

	logrus.WithFields(logrus.Fields{"entry_id": e.ID, "bucket": s.bucket}).Info("Card uploaded")
	return e, nil
}

// List implements Gallery. Only object listing data is returned; names and
// scene fields require Get.
func (s *S3) List(ctx context.Context) ([]Entry, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(AlbumName + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	entries := make([]Entry, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		id := strings.TrimPrefix(key, AlbumName+"/")
		entries = append(entries, Entry{
			ID:        id,
			Size:      aws.ToInt64(obj.Size),
			Location:  "s3://" + s.bucket + "/" + key,
			CreatedAt: aws.ToTime(obj.LastModified),
		})
	}
	return entries, nil
}

// Get implements Gallery.
func (s *S3) Get(ctx context.Context, id string) ([]byte, Entry, error) {
	if path.Base(id) != id || id == "" || id == "." || id == ".." {
		return nil, Entry{}, fmt.Errorf("invalid entry id %q", id)
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, Entry{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("failed to read card data: %w", err)
	}
	version, _ := strconv.ParseUint(resp.Metadata[metaSceneVersion], 10, 64)
	return data, Entry{
		ID:           id,
		Name:         resp.Metadata[metaName],
		MIME:         aws.ToString(resp.ContentType),
		Size:         int64(len(data)),
		Location:     "s3://" + s.bucket + "/" + s.key(id),
		SceneID:      resp.Metadata[metaSceneID],
		SceneVersion: version,
		CreatedAt:    aws.ToTime(resp.LastModified),
	}, nil
}
