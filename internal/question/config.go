package question

// Config controls the Composer.
type Config struct {
	// MaxTokens is the token budget for the model response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls output randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxAttempts bounds regeneration after a retryable structural failure.
	MaxAttempts int `yaml:"max_attempts"`
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.7,
		MaxAttempts: 2,
	}
}
