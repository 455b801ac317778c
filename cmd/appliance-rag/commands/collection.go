package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	vectorapp "github.com/jinford/appliance-rag/internal/module/vectorindex/application"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// CollectionSetupAction はコレクションを作成するコマンドのアクション
func CollectionSetupAction(ctx context.Context, cmd *cli.Command) error {
	cfg, appLogger, storage, err := openStorage(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer storage.Close()

	service := vectorapp.NewCollectionService(storage.Index, cfg.OpenAI.EmbeddingDimension, appLogger)
	info, err := service.Setup(ctx, cmd.Bool("force-recreate"))
	if err != nil {
		return fmt.Errorf("コレクションの作成に失敗: %w", err)
	}

	return renderCollectionInfo(info, cmd.String("format"))
}

// CollectionInfoAction はコレクション情報を表示するコマンドのアクション
func CollectionInfoAction(ctx context.Context, cmd *cli.Command) error {
	cfg, appLogger, storage, err := openStorage(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer storage.Close()

	service := vectorapp.NewCollectionService(storage.Index, cfg.OpenAI.EmbeddingDimension, appLogger)
	info, err := service.Info(ctx)
	if err != nil {
		return fmt.Errorf("コレクション情報の取得に失敗: %w", err)
	}

	return renderCollectionInfo(info, cmd.String("format"))
}

// CollectionDeleteAction はコレクションを削除するコマンドのアクション
func CollectionDeleteAction(ctx context.Context, cmd *cli.Command) error {
	cfg, appLogger, storage, err := openStorage(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer storage.Close()

	service := vectorapp.NewCollectionService(storage.Index, cfg.OpenAI.EmbeddingDimension, appLogger)
	deleted, err := service.Delete(ctx)
	if err != nil {
		return fmt.Errorf("コレクションの削除に失敗: %w", err)
	}

	return writeJSON(map[string]any{
		"collection": cfg.VectorStore.Collection,
		"deleted":    deleted,
	})
}

// renderCollectionInfo はコレクション情報を指定フォーマットで出力する
func renderCollectionInfo(info *vectordomain.CollectionInfo, format string) error {
	if format != FormatTable {
		return writeJSON(info)
	}

	table := tablewriter.NewWriter(stdout)
	table.Header("項目", "値")
	table.Append("Name", info.Name)
	table.Append("Status", info.Status)
	table.Append("Points", fmt.Sprintf("%d", info.PointCount))
	table.Append("Vectors", fmt.Sprintf("%d", info.VectorCount))
	table.Append("Dimension", fmt.Sprintf("%d", info.Dimension))
	table.Append("Distance", info.DistanceMetric)
	table.Render()
	return nil
}
