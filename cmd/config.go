package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=3000"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	AttachmentDir        string        `env:"ATTACHMENT_DIR,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`

	TranslateEndpoint        string        `env:"TRANSLATE_ENDPOINT"`
	TranslateAPIKey          string        `env:"TRANSLATE_API_KEY"`
	TranslateTimeout         time.Duration `env:"TRANSLATE_TIMEOUT,required=true"`
	DocumentTranslateTimeout time.Duration `env:"DOCUMENT_TRANSLATE_TIMEOUT,required=true"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
}
