package prefixfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jinford/appliance-rag/internal/module/scoring/domain"
)

// File はブランド推定表ファイルの構造
type File struct {
	BrandPrefixes []domain.BrandPrefix `yaml:"brand_prefixes"`
}

// Load はブランド推定表を読み込み、既定の表に統合して返します
// path が空の場合は既定の表をそのまま返します
func Load(path string) (domain.BrandPrefixTable, error) {
	table := domain.DefaultBrandPrefixTable()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brand prefix file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse brand prefix file: %w", err)
	}

	for i, entry := range file.BrandPrefixes {
		if strings.TrimSpace(entry.Brand) == "" {
			return nil, fmt.Errorf("brand prefix entry %d: brand is required", i)
		}
		if len(entry.Prefixes) == 0 {
			return nil, fmt.Errorf("brand prefix entry %q: at least one prefix is required", entry.Brand)
		}
	}

	return table.Merge(file.BrandPrefixes), nil
}
