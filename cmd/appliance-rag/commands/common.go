package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jinford/appliance-rag/internal/platform/config"
	"github.com/jinford/appliance-rag/internal/platform/container"
	"github.com/jinford/appliance-rag/internal/platform/logger"
)

// 出力フォーマット
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// stdout はコマンド結果の出力先（テストで差し替える）
var stdout io.Writer = os.Stdout

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Logger    *slog.Logger
	Container *container.ServiceContainer
}

// loadConfig は設定を読み込み、ロガーを初期化する
func loadConfig(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.Log.SlogLevel(),
		Format: cfg.Log.Format,
	})
	return cfg, appLogger, nil
}

// NewAppContext は設定ファイルを読み込み、全サービスを組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Logger:    appLogger,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// openStorage はEmbeddingクライアントを必要としないコマンド向けにストレージだけを開く
func openStorage(ctx context.Context, envFile string) (*config.Config, *slog.Logger, *container.Storage, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, nil, nil, err
	}

	storage, err := container.OpenStorage(ctx, cfg, appLogger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ストレージの初期化に失敗: %w", err)
	}
	return cfg, appLogger, storage, nil
}

// writeJSON は値をインデント付きJSONで標準出力に書き出す
func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON出力に失敗: %w", err)
	}
	return nil
}
