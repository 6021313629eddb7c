package config

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/ragstage/ragstage.log"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPollIntervalMs    = 1000
	DefaultRowsPerFile       = 100
	DefaultBatchSize         = 50
	DefaultMaxConcurrency    = 5
	DefaultStrictConsistency = true

	DefaultLLMModel     = "deepseek-chat"
	DefaultLLMBaseURL   = "https://api.deepseek.com/v1"
	DefaultLLMRateLimit = 60

	DefaultEmbeddingsURL   = "http://localhost:8080"
	DefaultEmbeddingsModel = "BAAI/bge-small-zh-v1.5"

	DefaultVectorStoreURI  = "http://localhost:8000"
	DefaultCollectionName  = "rag_chunks"
	DefaultVectorDim       = 512
	DefaultEnableDense     = true
	DefaultEnableSparse    = false
	DefaultVectorOverwrite = false

	DefaultElasticURL   = "http://localhost:9200"
	DefaultElasticIndex = "rag_keywords"
)

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Redis: RedisConfig{
			Addr: DefaultRedisAddr,
			DB:   DefaultRedisDB,
		},
		Pipeline: PipelineConfig{
			PollIntervalMs:    DefaultPollIntervalMs,
			RowsPerFile:       DefaultRowsPerFile,
			BatchSize:         DefaultBatchSize,
			MaxConcurrency:    DefaultMaxConcurrency,
			StrictConsistency: DefaultStrictConsistency,
		},
		LLM: LLMConfig{
			Model:     DefaultLLMModel,
			BaseURL:   DefaultLLMBaseURL,
			RateLimit: DefaultLLMRateLimit,
		},
		Embeddings: EmbeddingsConfig{
			URL:   DefaultEmbeddingsURL,
			Model: DefaultEmbeddingsModel,
		},
		VectorStore: VectorStoreConfig{
			URI:            DefaultVectorStoreURI,
			CollectionName: DefaultCollectionName,
			Dim:            DefaultVectorDim,
			EnableDense:    DefaultEnableDense,
			EnableSparse:   DefaultEnableSparse,
			Overwrite:      DefaultVectorOverwrite,
		},
		Elastic: ElasticConfig{
			URL:   DefaultElasticURL,
			Index: DefaultElasticIndex,
		},
	}
}
