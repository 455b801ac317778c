package domain

import "context"

// VectorIndex はベクトルの永続化と近傍検索を行うポートです
type VectorIndex interface {
	CollectionManager

	// Upsert はエントリを batchSize 件ずつ書き込み、保存件数を返します（IDごとに冪等）
	Upsert(ctx context.Context, entries []*IndexEntry, batchSize int) (int, error)

	// Search はコサイン類似度の降順で最大 topK 件を返します
	// filters は完全一致のAND条件で、空の場合は制約なし
	Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*SearchResult, error)

	// DeleteByDocument はドキュメントに属するエントリをすべて削除し、削除件数を返します
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
}

// CollectionManager はコレクションのライフサイクル操作です
type CollectionManager interface {
	// CreateCollection はコレクションを作成します（forceRecreate が true の場合は既存を削除して再作成）
	CreateCollection(ctx context.Context, forceRecreate bool) error

	// DeleteCollection はコレクションを削除します
	DeleteCollection(ctx context.Context) error

	// CollectionInfo はコレクション情報を返します（存在しない場合は ErrCollectionNotFound）
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)
}

// DocumentReplacer はドキュメント単位でエントリを置き換えられるインデックスです
// 削除と書き込みを1つの単位として実行し、クエリが部分的にインデックスされた状態を観測しないようにします
type DocumentReplacer interface {
	ReplaceDocument(ctx context.Context, documentID string, entries []*IndexEntry, batchSize int) (int, error)
}
