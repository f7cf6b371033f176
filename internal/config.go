package internal

import (
	"fmt"
	"time"
)

// Config is the server-side environment surface.
type Config struct {
	Addr                 string        `env:"ADDR,default=:8080"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	OpenRegistration     bool          `env:"OPEN_REGISTRATION,default=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	CensoredWordsPath    string        `env:"CENSORED_WORDS_PATH"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	ChannelID            string        `env:"CHANNEL_ID,default=1"`
}

// ClientConfig is the terminal client's environment surface.
type ClientConfig struct {
	ServerURL         string        `env:"SERVER_URL,default=ws://localhost:8080/ws"`
	Username          string        `env:"CHAT_USERNAME,required=true"`
	Credential        string        `env:"CHAT_CREDENTIAL,required=true"`
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL,default=1s"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
