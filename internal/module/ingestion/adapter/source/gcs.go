package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

const gcsScheme = "gs://"

// ErrObjectNotFound はGCSのオブジェクトが存在しない場合のエラー
var ErrObjectNotFound = errors.New("gcs object not found")

// ObjectStore はオブジェクトストレージの読み取り操作です
type ObjectStore interface {
	// Download はオブジェクトの内容を w に書き込みます
	Download(ctx context.Context, bucket, object string, w io.Writer) error

	// List は prefix に一致するオブジェクト名を返します
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// GCSObjectStore は Cloud Storage JSON API による ObjectStore 実装です
type GCSObjectStore struct {
	service *storage.Service
}

// NewGCSObjectStore は新しい GCSObjectStore を作成します
// credentialsFile が空の場合は Application Default Credentials を使用します
func NewGCSObjectStore(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GCSObjectStore, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(storage.DevstorageReadOnlyScope))

	service, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	return &GCSObjectStore{service: service}, nil
}

// Download はオブジェクトの内容を w に書き込みます
func (s *GCSObjectStore) Download(ctx context.Context, bucket, object string, w io.Writer) error {
	resp, err := s.service.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		return classifyGCS(err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read object gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// List は prefix に一致するオブジェクト名を返します
func (s *GCSObjectStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	err := s.service.Objects.List(bucket).Prefix(prefix).Pages(ctx, func(objects *storage.Objects) error {
		for _, o := range objects.Items {
			names = append(names, o.Name)
		}
		return nil
	})
	if err != nil {
		return nil, classifyGCS(err)
	}
	return names, nil
}

func classifyGCS(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return fmt.Errorf("gcs request failed: %w", err)
}

// ParseGCSURI は gs://bucket/object をバケット名とオブジェクト名に分解します
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return "", "", fmt.Errorf("%w: not a gs:// URI: %s", domain.ErrUnsupportedSource, uri)
	}
	rest := strings.TrimPrefix(uri, gcsScheme)
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: missing bucket in %s", domain.ErrUnsupportedSource, uri)
	}
	return bucket, object, nil
}

// IsGCSURI は gs:// で始まるかを返します
func IsGCSURI(uri string) bool {
	return strings.HasPrefix(uri, gcsScheme)
}

// GCSSource は gs:// のオブジェクトをローカルキャッシュにダウンロードして取り込み対象にします
type GCSSource struct {
	store    ObjectStore
	cacheDir string
	log      *slog.Logger
}

// NewGCSSource は新しい GCSSource を作成します
func NewGCSSource(store ObjectStore, cacheDir string, log *slog.Logger) *GCSSource {
	return &GCSSource{
		store:    store,
		cacheDir: cacheDir,
		log:      log,
	}
}

// Resolve は URI をキャッシュ済みのローカルファイル一覧に展開します
// 取り込み対象の拡張子を持つ URI は単一オブジェクト、それ以外はプレフィックスとして扱います
func (s *GCSSource) Resolve(ctx context.Context, uri string) ([]domain.SourceFile, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	objects := []string{object}
	if !IsSupported(object) {
		names, err := s.store.List(ctx, bucket, object)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", uri, err)
		}
		objects = objects[:0]
		for _, name := range names {
			if IsSupported(name) {
				objects = append(objects, name)
			}
		}
		s.log.Info("Listed GCS prefix", "uri", uri, "objects", len(objects))
	}

	files := make([]domain.SourceFile, 0, len(objects))
	for _, name := range objects {
		local, err := s.fetch(ctx, bucket, name)
		if err != nil {
			return nil, err
		}
		files = append(files, domain.SourceFile{
			Path:   local,
			Source: gcsScheme + bucket + "/" + name,
		})
	}
	return files, nil
}

// fetch はオブジェクトをキャッシュにダウンロードします（キャッシュ済みの場合は再利用）
func (s *GCSSource) fetch(ctx context.Context, bucket, object string) (string, error) {
	root := filepath.Join(s.cacheDir, "gcs", bucket)
	local := filepath.Join(root, filepath.FromSlash(object))
	if rel, err := filepath.Rel(root, local); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: invalid object name %q", domain.ErrUnsupportedSource, object)
	}

	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		s.log.Debug("Using cached object", "bucket", bucket, "object", object, "path", local)
		return local, nil
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	s.log.Info("Downloading from GCS", "bucket", bucket, "object", object)
	if err := s.store.Download(ctx, bucket, object, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to download gs://%s/%s: %w", bucket, object, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", fmt.Errorf("failed to move cache file: %w", err)
	}
	return local, nil
}
