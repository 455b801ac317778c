package policyfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jinford/appliance-rag/internal/module/safety/domain"
)

// Load は安全ポリシーファイルを読み込みます
// ファイルが存在しない場合は警告を記録して空のポリシーを返します
func Load(path string, log *slog.Logger) (*domain.Policy, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Safety policy file not found, using empty policy", "path", path)
		return domain.EmptyPolicy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read safety policy: %w", err)
	}

	policy := domain.EmptyPolicy()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse safety policy %s: %w", path, err)
	}
	policy.Normalize()

	log.Debug("Safety policy loaded",
		"path", path,
		"blockedActions", len(policy.BlockedActions),
		"requiredWarnings", len(policy.RequiredWarnings),
	)
	return policy, nil
}
