package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/appliance-rag/internal/module/chunking/adapter/chunker"
	"github.com/jinford/appliance-rag/internal/module/chunking/adapter/tokenizer"
	chunkdomain "github.com/jinford/appliance-rag/internal/module/chunking/domain"
	embeddingopenai "github.com/jinford/appliance-rag/internal/module/embedding/adapter/openai"
	embedapp "github.com/jinford/appliance-rag/internal/module/embedding/application"
	embeddomain "github.com/jinford/appliance-rag/internal/module/embedding/domain"
	"github.com/jinford/appliance-rag/internal/module/ingestion/adapter/detector"
	"github.com/jinford/appliance-rag/internal/module/ingestion/adapter/extractor"
	"github.com/jinford/appliance-rag/internal/module/ingestion/adapter/source"
	ingestapp "github.com/jinford/appliance-rag/internal/module/ingestion/application"
	retrievalapp "github.com/jinford/appliance-rag/internal/module/retrieval/application"
	"github.com/jinford/appliance-rag/internal/module/safety/adapter/policyfile"
	safetyapp "github.com/jinford/appliance-rag/internal/module/safety/application"
	safetydomain "github.com/jinford/appliance-rag/internal/module/safety/domain"
	"github.com/jinford/appliance-rag/internal/module/scoring/adapter/prefixfile"
	scoringapp "github.com/jinford/appliance-rag/internal/module/scoring/application"
	scoringdomain "github.com/jinford/appliance-rag/internal/module/scoring/domain"
	searchapp "github.com/jinford/appliance-rag/internal/module/search/application"
	searchdomain "github.com/jinford/appliance-rag/internal/module/search/domain"
	vectorapp "github.com/jinford/appliance-rag/internal/module/vectorindex/application"
	"github.com/jinford/appliance-rag/internal/platform/config"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
type ServiceContainer struct {
	CollectionService *vectorapp.CollectionService
	Pipeline          *ingestapp.Pipeline
	Retriever         *retrievalapp.Retriever
	Scorer            *scoringapp.Scorer
	SearchService     *searchapp.SearchService
	SafetyChecker     *safetyapp.Checker

	LocalSource *source.LocalSource
	GitSource   *source.GitSource

	cfg     *config.Config
	logger  *slog.Logger
	storage *Storage
	gcs     source.ObjectStore
}

type containerOptions struct {
	logger          *slog.Logger
	storage         *Storage
	embeddingClient embeddomain.Client
	tokenizer       chunkdomain.Tokenizer
	qualityRunner   extractor.CommandRunner
	objectStore     source.ObjectStore
	safetyPolicy    *safetydomain.Policy
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerStorage はインデックスと登録簿を差し替える
func WithContainerStorage(storage *Storage) ContainerOption {
	return func(opts *containerOptions) {
		opts.storage = storage
	}
}

// WithContainerEmbeddingClient は Embedding クライアントを差し替える
func WithContainerEmbeddingClient(client embeddomain.Client) ContainerOption {
	return func(opts *containerOptions) {
		opts.embeddingClient = client
	}
}

// WithContainerTokenizer はトークナイザを差し替える
func WithContainerTokenizer(t chunkdomain.Tokenizer) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenizer = t
	}
}

// WithContainerCommandRunner は pdftotext の実行を差し替える
func WithContainerCommandRunner(runner extractor.CommandRunner) ContainerOption {
	return func(opts *containerOptions) {
		opts.qualityRunner = runner
	}
}

// WithContainerObjectStore は GCS のオブジェクトストアを差し替える
func WithContainerObjectStore(store source.ObjectStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.objectStore = store
	}
}

// WithContainerSafetyPolicy は安全ポリシーを差し替える
func WithContainerSafetyPolicy(policy *safetydomain.Policy) ContainerOption {
	return func(opts *containerOptions) {
		opts.safetyPolicy = policy
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	log := options.logger

	storage := options.storage
	if storage == nil {
		var err error
		storage, err = OpenStorage(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	}

	c, err := build(cfg, storage, options)
	if err != nil {
		storage.Close()
		return nil, err
	}
	return c, nil
}

func build(cfg *config.Config, storage *Storage, options containerOptions) (*ServiceContainer, error) {
	log := options.logger

	// Embedder (OpenAI)
	client := options.embeddingClient
	if client == nil {
		openaiClient, err := embeddingopenai.NewClient(cfg.OpenAI.APIKey,
			embeddingopenai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			embeddingopenai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			embeddingopenai.WithBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("Embeddingクライアント初期化に失敗しました: %w", err)
		}
		client = openaiClient
	}
	embedder := embedapp.NewBatchEmbedder(client, log,
		embedapp.WithBatchSize(cfg.Embedding.BatchSize),
		embedapp.WithBatchDelay(cfg.Embedding.BatchDelay),
		embedapp.WithBatchTimeout(cfg.Embedding.BatchTimeout),
	)

	// Chunker (tiktoken)
	tok := options.tokenizer
	if tok == nil {
		tiktokenCounter, err := tokenizer.NewTiktokenCounter(cfg.Chunking.Encoding)
		if err != nil {
			return nil, fmt.Errorf("トークナイザ初期化に失敗しました: %w", err)
		}
		tok = tiktokenCounter
	}
	sentenceChunker, err := chunker.NewSentenceChunker(tok,
		chunker.WithChunkSize(cfg.Chunking.ChunkSize),
		chunker.WithOverlap(cfg.Chunking.ChunkOverlap),
	)
	if err != nil {
		return nil, fmt.Errorf("チャンカー初期化に失敗しました: %w", err)
	}

	// Extractors
	pdftotextOpts := []extractor.PdftotextOption{extractor.WithBinary(cfg.Ingestion.PdftotextPath)}
	if options.qualityRunner != nil {
		pdftotextOpts = append(pdftotextOpts, extractor.WithRunner(options.qualityRunner))
	}
	quality := extractor.NewPdftotextExtractor(pdftotextOpts...)
	if err := quality.CheckAvailable(); err != nil && options.qualityRunner == nil {
		log.Warn("Quality PDF extractor is unavailable, falling back to the fast extractor", "error", err)
	}
	processor := ingestapp.NewProcessor(
		detector.NewContentTypeDetector(),
		quality,
		extractor.NewPDFReaderExtractor(),
		extractor.NewPlainTextExtractor(),
		log,
		ingestapp.WithSizeThreshold(cfg.Ingestion.SizeThresholdBytes),
	)

	pipeline := ingestapp.NewPipeline(processor, sentenceChunker, embedder, storage.Index, storage.Registry,
		cfg.OpenAI.EmbeddingDimension, log,
		ingestapp.WithUpsertBatchSize(cfg.VectorStore.UpsertBatchSize),
		ingestapp.WithConcurrency(cfg.Ingestion.Concurrency),
	)

	// Retrieval / Scoring / Search
	retriever := retrievalapp.NewRetriever(embedder, storage.Index, log,
		retrievalapp.WithDefaultTopK(cfg.Search.DefaultRetrieveK))

	prefixes, err := prefixfile.Load(cfg.Scoring.BrandPrefixFile)
	if err != nil {
		return nil, err
	}
	scorer := scoringapp.NewScorer(retriever, log,
		scoringapp.WithMismatchParams(scoringdomain.MismatchParams{
			ExactScore:     cfg.Scoring.MismatchExactScore,
			PartialScore:   cfg.Scoring.MismatchPartialScore,
			MinModelLength: cfg.Scoring.MismatchMinLength,
			PrefixRatio:    cfg.Scoring.MismatchPrefixRatio,
			LookupTopK:     cfg.Scoring.MismatchLookupTopK,
		}),
		scoringapp.WithBrandPrefixTable(prefixes),
	)

	searchService := searchapp.NewSearchService(retriever, scorer, searchdomain.Policy{
		DefaultTopK:     cfg.Search.DefaultTopK,
		MinSimilarity:   cfg.Search.MinSimilarity,
		FallbackDelta:   cfg.Search.FallbackDelta,
		FallbackFloor:   cfg.Search.FallbackFloor,
		OverFetchFactor: cfg.Search.OverFetchFactor,
	}, log)

	// Safety
	policy := options.safetyPolicy
	if policy == nil {
		policy, err = policyfile.Load(cfg.Safety.PolicyPath, log)
		if err != nil {
			return nil, err
		}
	}

	gitOpts := []source.GitOption{source.WithDefaultRef(cfg.Ingestion.GitDefaultBranch)}
	if cfg.Ingestion.GitSSHKeyPath != "" {
		gitOpts = append(gitOpts, source.WithSSHKey(cfg.Ingestion.GitSSHKeyPath, cfg.Ingestion.GitSSHPassword))
	}

	return &ServiceContainer{
		CollectionService: vectorapp.NewCollectionService(storage.Index, cfg.OpenAI.EmbeddingDimension, log),
		Pipeline:          pipeline,
		Retriever:         retriever,
		Scorer:            scorer,
		SearchService:     searchService,
		SafetyChecker:     safetyapp.NewChecker(policy, log),
		LocalSource:       source.NewLocalSource(),
		GitSource:         source.NewGitSource(cfg.Ingestion.CacheDir, log, gitOpts...),
		cfg:               cfg,
		logger:            log,
		storage:           storage,
		gcs:               options.objectStore,
	}, nil
}

// GCSSource は gs:// ソースを返す。オブジェクトストアは初回利用時に作成する。
func (c *ServiceContainer) GCSSource(ctx context.Context) (*source.GCSSource, error) {
	if c.gcs == nil {
		store, err := source.NewGCSObjectStore(ctx, c.cfg.Ingestion.GCSCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("GCSクライアント初期化に失敗しました: %w", err)
		}
		c.gcs = store
	}
	return source.NewGCSSource(c.gcs, c.cfg.Ingestion.CacheDir, c.logger), nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil {
		c.storage.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Config は設定を返す。
func (c *ServiceContainer) Config() *config.Config {
	return c.cfg
}
