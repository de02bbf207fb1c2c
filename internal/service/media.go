package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"socialmedia_api/internal/config"
	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/model"
)

// objectStore is the subset of the S3 client used for avatars.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService stores avatars in Cloudflare R2 through its S3 API.
type MediaService struct {
	store      objectStore
	bucket     string
	publicURL  string
	defaultKey string
}

// NewMediaService builds an R2 client. It fails when storage is not configured.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.R2Enabled() || cfg.R2PublicURL == "" {
		return nil, model.ErrStorageDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return newMediaService(client, cfg.R2BucketName, cfg.R2PublicURL, cfg.DefaultAvatarKey), nil
}

func newMediaService(store objectStore, bucket, publicURL, defaultKey string) *MediaService {
	return &MediaService{
		store:      store,
		bucket:     bucket,
		publicURL:  strings.TrimSuffix(publicURL, "/"),
		defaultKey: defaultKey,
	}
}

// UploadAvatar checks size and type, normalizes to a 200x200 JPEG and
// uploads it under a fresh key.
func (s *MediaService) UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	data, err := readAndValidateImage(file, header, model.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, model.AvatarWidth, model.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", model.AvatarFolder, uuid.NewString(), model.AvatarExt)
	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(jpegBytes),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.AvatarCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	return &model.UploadResult{URL: s.publicURL + "/" + key, Key: key}, nil
}

// DeleteObject removes an uploaded object. The shared default avatar is never deleted.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" || key == s.defaultKey {
		return nil
	}
	_, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	logging.Ctx(ctx).Debug().Str("key", key).Msg("object deleted")
	return nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file io.Reader, header *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if header.Size > maxSize {
		return nil, model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	return data, nil
}

// resizeToJPEG center-crops to the target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.NewValidationError("could not decode image")
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
