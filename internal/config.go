package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	DefaultPageLimit     int           `env:"DEFAULT_PAGE_LIMIT,default=50"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// CensoredWordList splits the comma separated CENSORED_WORDS value.
// An empty value means moderation is disabled.
func (c Config) CensoredWordList() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// CharacterRune validates that CHARACTER_REPLACEMENT is a single character.
func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
