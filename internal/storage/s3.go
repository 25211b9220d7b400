package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"

	appconfig "thepup/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file is too large")
	ErrBadKey          = errors.New("bad object key")
)

// allowedTypes: разрешённые типы картинок и их расширения.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var folderRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// ObjectAPI: часть клиента S3, которая нужна хранилищу.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Object: загруженный файл.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Storage struct {
	log     *slog.Logger
	client  ObjectAPI
	bucket  string
	baseURL string
	maxSize int64
}

// New создаёт клиент S3 по стандартной цепочке AWS с переопределениями из конфига.
func New(ctx context.Context, log *slog.Logger, cfg appconfig.StorageConfig) (*Storage, error) {
	op := "storage.New()"

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewWithClient(log, client, cfg), nil
}

func NewWithClient(log *slog.Logger, client ObjectAPI, cfg appconfig.StorageConfig) *Storage {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		switch {
		case cfg.Endpoint != "":
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = 5 << 20
	}

	return &Storage{
		log:     log,
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		maxSize: maxSize,
	}
}

func (s *Storage) MaxSize() int64 {
	return s.maxSize
}

// Upload сохраняет картинку под ключом folder/<uuid><ext> и возвращает публичный URL.
// Тип файла определяется по содержимому, а не по заголовкам клиента.
func (s *Storage) Upload(ctx context.Context, folder string, body io.Reader) (Object, error) {
	op := "storage.Upload()"
	log := s.log.With(slog.String("op", op))

	folder = strings.ToLower(strings.TrimSpace(folder))
	if folder == "" {
		folder = "uploads"
	}
	if !folderRe.MatchString(folder) {
		return Object{}, fmt.Errorf("%s: folder %q: %w", op, folder, ErrBadKey)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		return Object{}, fmt.Errorf("%s: %w", op, err)
	}
	if int64(len(data)) > s.maxSize {
		return Object{}, fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Object{}, fmt.Errorf("%s: %s: %w", op, contentType, ErrUnsupportedType)
	}

	key := path.Join(folder, uuid.NewString()+ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return Object{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("object uploaded", slog.String("key", key), slog.Int("size", len(data)))

	return Object{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Delete удаляет объект. Отсутствующий объект ошибкой не считается.
func (s *Storage) Delete(ctx context.Context, key string) error {
	op := "storage.Delete()"

	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("%s: %w", op, ErrBadKey)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// KeyFromURL извлекает ключ объекта из публичного URL этого хранилища.
func (s *Storage) KeyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
