package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileNames はディレクトリ走査時に読み込む除外パターンファイル
var IgnoreFileNames = []string{".gitignore", ".ingestignore"}

// IgnoreFilter は .gitignore と .ingestignore のパターンマッチングを提供します
type IgnoreFilter struct {
	patterns *gitignore.GitIgnore
}

// NewIgnoreFilter は新しいIgnoreFilterを作成します
// root 直下の除外パターンファイルとデフォルトの除外パターンを読み込みます
func NewIgnoreFilter(root string) (*IgnoreFilter, error) {
	var patterns []string
	for _, name := range IgnoreFileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		lines, err := readIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}
	patterns = append(patterns, defaultIgnorePatterns...)

	return &IgnoreFilter{
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// ShouldIgnore は root からの相対パスが除外対象かどうかを判定します
func (f *IgnoreFilter) ShouldIgnore(relPath string) bool {
	if f == nil || f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(filepath.ToSlash(relPath))
}

// readIgnoreFile は ignore ファイルを読み込んでパターンのスライスを返します
func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// 空行とコメント行をスキップ
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// defaultIgnorePatterns はデフォルトの除外パターン
var defaultIgnorePatterns = []string{
	".git",
	".DS_Store",
	"*.tmp",
	"*.part",
	"*.crdownload",
}
