package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// SupportedExtensions は取り込み対象の拡張子
var SupportedExtensions = []string{".pdf", ".txt", ".md", ".markdown"}

// IsSupported はファイル名が取り込み対象の拡張子かを返します
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// LocalSource はローカルのファイル・ディレクトリを取り込み対象として列挙します
type LocalSource struct{}

// NewLocalSource は新しい LocalSource を作成します
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// Resolve はパスを取り込み対象のファイル一覧に展開します
// ファイルはそのまま、ディレクトリは除外パターンを考慮して再帰的に走査します
func (s *LocalSource) Resolve(ctx context.Context, path string) ([]domain.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return []domain.SourceFile{{Path: path, Source: path}}, nil
	}
	return s.walk(ctx, path, func(rel string) string { return filepath.Join(path, rel) })
}

// walk は root 配下の取り込み対象ファイルを列挙し、sourceOf で元の位置を決めます
func (s *LocalSource) walk(ctx context.Context, root string, sourceOf func(rel string) string) ([]domain.SourceFile, error) {
	filter, err := NewIgnoreFilter(root)
	if err != nil {
		return nil, err
	}

	var files []domain.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if filter.ShouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !IsSupported(d.Name()) {
			return nil
		}

		files = append(files, domain.SourceFile{
			Path:   path,
			Source: sourceOf(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
