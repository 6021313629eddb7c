package config

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel    string            `yaml:"log_level" mapstructure:"log_level"`
	LogFile     string            `yaml:"log_file" mapstructure:"log_file"`
	Redis       RedisConfig       `yaml:"redis" mapstructure:"redis"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" mapstructure:"embeddings"`
	VectorStore VectorStoreConfig `yaml:"vectorstore" mapstructure:"vectorstore"`
	Elastic     ElasticConfig     `yaml:"elastic" mapstructure:"elastic"`
}

// RedisConfig holds the connection settings for the stream broker and
// the shared status registry.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// PipelineConfig holds stage processing knobs.
type PipelineConfig struct {
	PollIntervalMs    int  `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	RowsPerFile       int  `yaml:"rows_per_file" mapstructure:"rows_per_file"`
	BatchSize         int  `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency    int  `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	StrictConsistency bool `yaml:"strict_consistency" mapstructure:"strict_consistency"`
}

// LLMConfig holds the enrichment model endpoint configuration.
// The endpoint is OpenAI-compatible (DeepSeek by default).
type LLMConfig struct {
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per minute
}

// EmbeddingsConfig holds the text-embeddings-inference endpoint configuration.
type EmbeddingsConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Model string `yaml:"model" mapstructure:"model"`
}

// VectorStoreConfig holds the dense/sparse store configuration.
type VectorStoreConfig struct {
	URI            string `yaml:"uri" mapstructure:"uri"`
	Token          string `yaml:"token,omitempty" mapstructure:"token"`
	CollectionName string `yaml:"collection_name" mapstructure:"collection_name"`
	Dim            int    `yaml:"dim" mapstructure:"dim"`
	EnableDense    bool   `yaml:"enable_dense" mapstructure:"enable_dense"`
	EnableSparse   bool   `yaml:"enable_sparse" mapstructure:"enable_sparse"`
	Overwrite      bool   `yaml:"overwrite" mapstructure:"overwrite"`
}

// ElasticConfig holds the sparse keyword store configuration.
type ElasticConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Index string `yaml:"index" mapstructure:"index"`
}
