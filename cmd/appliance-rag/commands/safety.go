package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/appliance-rag/internal/module/safety/adapter/policyfile"
	safetyapp "github.com/jinford/appliance-rag/internal/module/safety/application"
)

// SafetyCheckAction は修理計画を安全ポリシーで検査するコマンドのアクション
func SafetyCheckAction(ctx context.Context, cmd *cli.Command) error {
	plan, err := planText(cmd)
	if err != nil {
		return err
	}

	cfg, appLogger, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	policyPath := cfg.Safety.PolicyPath
	if cmd.IsSet("policy") {
		policyPath = cmd.String("policy")
	}
	policy, err := policyfile.Load(policyPath, appLogger)
	if err != nil {
		return err
	}

	report := safetyapp.NewChecker(policy, appLogger).Check(plan)
	return writeJSON(report)
}

// planText は位置引数または --file（"-" は標準入力）から計画テキストを読み込む
func planText(cmd *cli.Command) (string, error) {
	file := cmd.String("file")
	if file == "" {
		text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
		if text == "" {
			return "", errors.New("検査する計画テキストを指定してください")
		}
		return text, nil
	}

	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("計画ファイルを開けません: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("計画テキストの読み込みに失敗: %w", err)
	}
	return string(data), nil
}
