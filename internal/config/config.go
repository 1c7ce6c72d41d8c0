package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "none": the engine then relies on lexical similarity.
// Valid values: openai, mock, none
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "none"
	}
	return p
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock", "none":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// SimilarityThreshold gates "same topic" matching between belief statements.
// Defaults to 0.7.
func SimilarityThreshold() float64 {
	return floatEnv("SIMILARITY_THRESHOLD", 0.7)
}

// ContradictionThreshold gates conflict detection among opposite-polarity
// pairs. Defaults to the similarity threshold.
func ContradictionThreshold() float64 {
	return floatEnv("CONTRADICTION_THRESHOLD", SimilarityThreshold())
}

// DefaultResolutionStrategy applies to categories without an explicit entry
// in RESOLUTION_STRATEGIES. Defaults to newer_wins.
func DefaultResolutionStrategy() domain.ResolutionStrategy {
	s := os.Getenv("DEFAULT_RESOLUTION_STRATEGY")
	if !domain.ValidResolutionStrategy(s) {
		return domain.StrategyNewerWins
	}
	return domain.ResolutionStrategy(s)
}

// ResolutionStrategies parses RESOLUTION_STRATEGIES, a comma-separated list
// of category:strategy pairs, e.g. "preference:newer_wins,fact:manual".
// Malformed entries are skipped.
func ResolutionStrategies() map[domain.BeliefCategory]domain.ResolutionStrategy {
	out := make(map[domain.BeliefCategory]domain.ResolutionStrategy)
	raw := os.Getenv("RESOLUTION_STRATEGIES")
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		category, strategy := parts[0], parts[1]
		if !domain.ValidBeliefCategory(category) || !domain.ValidResolutionStrategy(strategy) {
			continue
		}
		out[domain.BeliefCategory(category)] = domain.ResolutionStrategy(strategy)
	}
	return out
}

// ForgettingStrategy selects the relevance scoring mode.
// Defaults to "hybrid". Valid values: age_based, usage_based, hybrid
func ForgettingStrategy() string {
	s := os.Getenv("FORGETTING_STRATEGY")
	if s == "" {
		return "hybrid"
	}
	return s
}

// ForgettingInterval is the period of the background forgetting cycle.
// Zero disables the worker. Defaults to 1h.
func ForgettingInterval() time.Duration {
	return durationEnv("FORGETTING_INTERVAL", time.Hour)
}

// RelevanceThreshold is the score below which memories are archived.
// Defaults to 0.2.
func RelevanceThreshold() float64 {
	return floatEnv("RELEVANCE_THRESHOLD", 0.2)
}

// EvictionGracePeriod is how long archived items wait before hard deletion.
// Defaults to 168h (one week).
func EvictionGracePeriod() time.Duration {
	return durationEnv("EVICTION_GRACE_PERIOD", 7*24*time.Hour)
}

// RecencyHalfLife is the half-life of the recency relevance factor.
// Defaults to 720h (30 days).
func RecencyHalfLife() time.Duration {
	return durationEnv("RECENCY_HALF_LIFE", 30*24*time.Hour)
}

// ProtectionStrength protects beliefs with an active incoming edge at or
// above this strength from eviction. Defaults to 0.8.
func ProtectionStrength() float64 {
	return floatEnv("PROTECTION_STRENGTH", 0.8)
}

// TraversalMaxDepth caps graph traversal depth. Defaults to 3.
func TraversalMaxDepth() int {
	return intEnv("TRAVERSAL_MAX_DEPTH", 3)
}

// RelevanceWeights parses the four RELEVANCE_WEIGHT_* vars, defaulting to
// recency 0.3, frequency 0.3, importance 0.2, belief support 0.2.
func RelevanceWeights() (recency, frequency, importance, beliefSupport float64) {
	return floatEnv("RELEVANCE_WEIGHT_RECENCY", 0.3),
		floatEnv("RELEVANCE_WEIGHT_FREQUENCY", 0.3),
		floatEnv("RELEVANCE_WEIGHT_IMPORTANCE", 0.2),
		floatEnv("RELEVANCE_WEIGHT_BELIEF_SUPPORT", 0.2)
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
