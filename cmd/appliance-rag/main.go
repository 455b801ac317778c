package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/appliance-rag/cmd/appliance-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		}
	}
	formatFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "format",
			Usage: "出力フォーマット (json/table)",
			Value: commands.FormatJSON,
		}
	}

	app := &cli.Command{
		Name:  "appliance-rag",
		Usage: "家電マニュアル向け RAG 検索および精度スコアリング",
		Commands: []*cli.Command{
			{
				Name:  "collection",
				Usage: "ベクトルコレクション管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "setup",
						Usage: "コレクションを作成",
						Flags: []cli.Flag{
							envFlag(),
							formatFlag(),
							&cli.BoolFlag{
								Name:  "force-recreate",
								Usage: "既存のコレクションを削除して再作成",
							},
						},
						Action: commands.CollectionSetupAction,
					},
					{
						Name:   "info",
						Usage:  "コレクション情報を表示",
						Flags:  []cli.Flag{envFlag(), formatFlag()},
						Action: commands.CollectionInfoAction,
					},
					{
						Name:   "delete",
						Usage:  "コレクションを削除",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.CollectionDeleteAction,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "マニュアルを取り込んでインデックス化",
				ArgsUsage: "[パス...]",
				Flags: []cli.Flag{
					envFlag(),
					formatFlag(),
					&cli.StringSliceFlag{
						Name:  "gcs",
						Usage: "GCSのURI (gs://bucket/object または gs://bucket/prefix/)",
					},
					&cli.StringFlag{
						Name:  "git",
						Usage: "マニュアルを含むGitリポジトリURL",
					},
					&cli.StringFlag{
						Name:  "ref",
						Usage: "ブランチ名またはタグ名（省略時は設定のデフォルトブランチ）",
					},
					&cli.StringFlag{
						Name:  "subdir",
						Usage: "Gitリポジトリ内のサブディレクトリ",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "取り込み済みの内容でも再取り込み",
					},
					&cli.StringFlag{
						Name:  "brand",
						Usage: "ブランド（ファイル名からの推定を上書き）",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "型番（ファイル名からの推定を上書き）",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "家電の種類（ファイル名からの推定を上書き）",
					},
				},
				Action: commands.IngestAction,
			},
			{
				Name:      "search",
				Usage:     "マニュアルを検索し精度スコアを算出",
				ArgsUsage: "<クエリ>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "返す結果の最大件数（省略時は設定値）",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "ユーザーの型番",
					},
					&cli.StringFlag{
						Name:  "brand",
						Usage: "ユーザーのブランド",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "家電の種類",
					},
					&cli.FloatFlag{
						Name:  "min-similarity",
						Usage: "類似度の下限 0.0〜1.0（省略時は設定値）",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:      "retrieve",
				Usage:     "メタデータで絞り込んだ生の検索結果を表示",
				ArgsUsage: "<クエリ>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "返す結果の最大件数（省略時は設定値）",
					},
					&cli.StringFlag{
						Name:  "brand",
						Usage: "ブランドで絞り込み",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "家電の種類で絞り込み",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "型番で絞り込み",
					},
					&cli.FloatFlag{
						Name:  "min-score",
						Usage: "スコアの下限",
					},
				},
				Action: commands.RetrieveAction,
			},
			{
				Name:  "safety",
				Usage: "安全ポリシーコマンド",
				Commands: []*cli.Command{
					{
						Name:      "check",
						Usage:     "修理計画を安全ポリシーで検査",
						ArgsUsage: "<計画テキスト>",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "file",
								Usage: "計画テキストのファイル（- で標準入力）",
							},
							&cli.StringFlag{
								Name:  "policy",
								Usage: "安全ポリシーファイル（省略時は設定値）",
							},
						},
						Action: commands.SafetyCheckAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
