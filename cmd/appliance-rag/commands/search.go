package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	retrievaldomain "github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	searchdomain "github.com/jinford/appliance-rag/internal/module/search/domain"
)

// SearchAction はマニュアルを検索し、精度スコア付きの結果を出力するコマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	query := queryArg(cmd)
	if query == "" {
		return searchdomain.ErrEmptyQuery
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	service := appCtx.Container.SearchService
	minSimilarity := service.Policy().MinSimilarity
	if cmd.IsSet("min-similarity") {
		minSimilarity = cmd.Float("min-similarity")
	}

	resp, err := service.Search(ctx, searchdomain.Request{
		Query:         query,
		TopK:          int(cmd.Int("top-k")),
		UserModel:     cmd.String("model"),
		UserBrand:     cmd.String("brand"),
		ApplianceType: cmd.String("type"),
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return err
	}

	return writeJSON(resp)
}

// RetrieveAction はフィルタ付きの生の検索結果を出力するコマンドのアクション
func RetrieveAction(ctx context.Context, cmd *cli.Command) error {
	query := queryArg(cmd)
	if query == "" {
		return retrievaldomain.ErrEmptyQuery
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	filter := retrievaldomain.MetadataFilter{
		Brand:         cmd.String("brand"),
		ApplianceType: cmd.String("type"),
		ModelNumber:   cmd.String("model"),
	}
	result, err := appCtx.Container.Retriever.RetrieveWithMetadata(ctx, query, int(cmd.Int("top-k")), filter, cmd.Float("min-score"))
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	return writeJSON(result)
}

// queryArg は位置引数を連結してクエリにする
func queryArg(cmd *cli.Command) string {
	return strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
}
