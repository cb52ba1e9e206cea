package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers selectable through LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderMistral   = "mistral"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Vector store backends selectable through VECTOR_STORE_TYPE.
const (
	StoreSurreal         = "surreal"
	StoreMemory          = "memory"
	StoreMemoryEmbedding = "memory_embedding"
)

// Config holds all configuration values.
type Config struct {
	// SPARQL store (mu-semtech conventions)
	SPARQLEndpoint   string
	SPARQLUpdateURL  string
	SPARQLTimeout    time.Duration
	ApplicationGraph string
	LogSPARQLQueries bool
	LogSPARQLUpdates bool

	// SurrealDB connection, used by the surreal vector store
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Knowledge base
	VectorStoreType    string
	CollectionName     string
	EndpointsFile      string
	RetrievedDocs      int
	ForceIndex         bool
	AutoInit           bool
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int

	// Embedding / LLM providers
	OllamaHost      string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIEndpoint  string
	OpenAIModel     string
	MistralAPIKey   string
	MistralEndpoint string
	MistralModel    string
	AnthropicAPIKey string
	AnthropicModel  string
	BedrockModel    string
	GenAIAPIKey     string
	LLMProvider     string
	Temperature     float64

	// Agent
	AgentTimeout  time.Duration
	AgentMaxSteps int
	EnabledTools  []string

	// Geocoding
	NominatimEndpoint string

	// Task processing
	MaxRetries   int
	RetryDelay   time.Duration
	PollInterval time.Duration
	StartupDelay time.Duration
	TaskDelay    time.Duration

	// HTTP
	Port        string
	CORSOrigins string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Defaults follow the mu-semtech service conventions.
func Load() Config {
	logAll := getBool("LOG_SPARQL_ALL", true)

	return Config{
		SPARQLEndpoint:   getEnv("MU_SPARQL_ENDPOINT", "http://database:8890/sparql"),
		SPARQLUpdateURL:  getEnv("MU_SPARQL_UPDATEPOINT", getEnv("MU_SPARQL_ENDPOINT", "http://database:8890/sparql")),
		SPARQLTimeout:    getDuration("MU_SPARQL_TIMEOUT", 60*time.Second),
		ApplicationGraph: getEnv("MU_APPLICATION_GRAPH", "http://mu.semte.ch/application"),
		LogSPARQLQueries: getBool("LOG_SPARQL_QUERIES", logAll),
		LogSPARQLUpdates: getBool("LOG_SPARQL_UPDATES", logAll),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "entity_linking"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "docs"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		VectorStoreType:    strings.ToLower(getEnv("VECTOR_STORE_TYPE", StoreMemoryEmbedding)),
		CollectionName:     getEnv("DOCS_COLLECTION_NAME", "sparql_endpoint_docs"),
		EndpointsFile:      getEnv("ENDPOINTS_FILE", ""),
		RetrievedDocs:      getInt("DEFAULT_RETRIEVED_DOCS", 3),
		ForceIndex:         getBool("FORCE_INDEX", false),
		AutoInit:           getBool("AUTO_INIT", true),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "ollama")),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		EmbeddingDimension: getInt("EMBEDDING_DIMENSIONS", 768),

		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "mistral-nemo"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIEndpoint:  getEnv("OPENAI_ENDPOINT", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1"),
		MistralAPIKey:   getEnv("MISTRAL_API_KEY", ""),
		MistralEndpoint: getEnv("MISTRAL_ENDPOINT", ""),
		MistralModel:    getEnv("MISTRAL_MODEL", "ministral-14b-2512"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		BedrockModel:    getEnv("BEDROCK_MODEL", "anthropic.claude-3-haiku-20240307-v1:0"),
		GenAIAPIKey:     getEnv("GENAI_API_KEY", ""),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		Temperature:     getFloat("TEMPERATURE", 0),

		AgentTimeout:  getDuration("AGENT_TIMEOUT", 60*time.Second),
		AgentMaxSteps: getInt("AGENT_MAX_STEPS", 10),
		EnabledTools:  getList("ENABLED_TOOLS"),

		NominatimEndpoint: getEnv("NOMINATIM_ENDPOINT", "https://nominatim.openstreetmap.org/"),

		MaxRetries:   getInt("LLM_MAX_RETRIES", 3),
		RetryDelay:   getDuration("TASK_RETRY_DELAY", 5*time.Second),
		PollInterval: getDuration("TASK_POLL_INTERVAL", 5*time.Second),
		StartupDelay: getDuration("TASK_STARTUP_DELAY", 5*time.Second),
		TaskDelay:    getDuration("TASK_DELAY", 5*time.Second),

		Port:        getEnv("PORT", "80"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return n
}

func getFloat(key string, defaultVal float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getDuration accepts Go duration syntax ("90s", "2m") or a bare number of seconds.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}

// getList splits a comma separated value; nil means "not set".
func getList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
