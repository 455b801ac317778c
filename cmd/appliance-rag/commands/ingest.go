package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/appliance-rag/internal/module/ingestion/adapter/source"
	ingestapp "github.com/jinford/appliance-rag/internal/module/ingestion/application"
	ingestdomain "github.com/jinford/appliance-rag/internal/module/ingestion/domain"
	"github.com/jinford/appliance-rag/internal/platform/container"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// errNoSources は取り込み対象が指定されていない場合のエラー
var errNoSources = errors.New("取り込み対象がありません（パス、--gcs、--git のいずれかを指定してください）")

// IngestAction はマニュアルを取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	targets := ingestTargets{
		Paths:  cmd.Args().Slice(),
		GCS:    cmd.StringSlice("gcs"),
		GitURL: cmd.String("git"),
		GitRef: cmd.String("ref"),
		Subdir: cmd.String("subdir"),
	}
	if targets.empty() {
		return errNoSources
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	files, err := targets.resolve(ctx, appCtx.Container)
	if err != nil {
		return err
	}
	appCtx.Logger.Info("取り込み対象を解決しました", "files", len(files))

	report, err := appCtx.Container.Pipeline.Ingest(ctx, files, ingestapp.IngestOptions{
		Force:    cmd.Bool("force"),
		Metadata: metadataFromFlags(cmd.String("brand"), cmd.String("model"), cmd.String("type")),
	})
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	if err := renderIngestReport(report, cmd.String("format")); err != nil {
		return err
	}
	if report.Total > 0 && report.Failed == report.Total {
		return fmt.Errorf("すべてのファイルの取り込みに失敗しました（%d件）", report.Failed)
	}
	return nil
}

// ingestTargets はコマンドラインで指定された取り込み元です
type ingestTargets struct {
	Paths  []string
	GCS    []string
	GitURL string
	GitRef string
	Subdir string
}

func (t ingestTargets) empty() bool {
	return len(t.Paths) == 0 && len(t.GCS) == 0 && t.GitURL == ""
}

// resolve は取り込み元をローカルファイルの一覧に解決する
// gs:// で始まるパスはGCSとして扱う
func (t ingestTargets) resolve(ctx context.Context, c *container.ServiceContainer) ([]ingestdomain.SourceFile, error) {
	var files []ingestdomain.SourceFile

	gcsURIs := append([]string{}, t.GCS...)
	for _, p := range t.Paths {
		if source.IsGCSURI(p) {
			gcsURIs = append(gcsURIs, p)
			continue
		}
		resolved, err := c.LocalSource.Resolve(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("ローカルパスの解決に失敗: %w", err)
		}
		files = append(files, resolved...)
	}

	if len(gcsURIs) > 0 {
		gcs, err := c.GCSSource(ctx)
		if err != nil {
			return nil, err
		}
		for _, uri := range gcsURIs {
			resolved, err := gcs.Resolve(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("GCSの解決に失敗 (%s): %w", uri, err)
			}
			files = append(files, resolved...)
		}
	}

	if t.GitURL != "" {
		resolved, err := c.GitSource.Resolve(ctx, t.GitURL, t.GitRef, t.Subdir)
		if err != nil {
			return nil, fmt.Errorf("Gitリポジトリの解決に失敗: %w", err)
		}
		files = append(files, resolved...)
	}

	return files, nil
}

// metadataFromFlags はコマンドラインで明示されたメタデータを返す
func metadataFromFlags(brand, model, applianceType string) metadata.Metadata {
	md := metadata.Metadata{}
	if v := strings.TrimSpace(brand); v != "" {
		md[metadata.KeyBrand] = v
	}
	if v := strings.TrimSpace(model); v != "" {
		md[metadata.KeyModelNumber] = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(applianceType); v != "" {
		md[metadata.KeyApplianceType] = strings.ToLower(v)
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// renderIngestReport は取り込み結果を指定フォーマットで出力する
func renderIngestReport(report *ingestdomain.Report, format string) error {
	if format != FormatTable {
		return writeJSON(report)
	}

	table := tablewriter.NewWriter(stdout)
	table.Header("Source", "Extractor", "Pages", "Chunks", "Indexed", "Embedding Failed")
	for _, doc := range report.Documents {
		table.Append(
			doc.Source,
			doc.Extractor,
			fmt.Sprintf("%d", doc.Pages),
			fmt.Sprintf("%d", doc.Chunks),
			fmt.Sprintf("%d", doc.Indexed),
			fmt.Sprintf("%d", doc.EmbeddingFailed),
		)
	}
	table.Render()

	for _, f := range report.Failures {
		slog.Warn("取り込み失敗", "source", f.Source, "error", f.Error)
	}
	fmt.Fprintf(stdout, "total=%d succeeded=%d failed=%d skipped_duplicates=%d chunks_indexed=%d\n",
		report.Total, report.Succeeded, report.Failed, report.SkippedDuplicates, report.ChunksIndexed)
	return nil
}
