package internal

import (
	"time"
)

type Config struct {
	Host                   string        `env:"HOST,default=localhost"`
	Port                   int           `env:"PORT,default=8080"`
	LogLevel               string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath         string        `env:"BADGER_FILEPATH,required=true"`
	LimitMessages          *int          `env:"LIMIT_MESSAGES"`
	BufferSize             int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize   int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	NumberOfPersistWorkers int           `env:"NUMBER_OF_PERSIST_WORKERS,required=true"`
	PersistTimeout         time.Duration `env:"PERSIST_TIMEOUT,required=true"`
	MaxBodyLength          int           `env:"MAX_BODY_LENGTH,required=true"`
	RestartInterval        time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval         time.Duration `env:"METRIC_INTERVAL"`
	AuthSecret             string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration      time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	AllowedOrigin          string        `env:"ALLOWED_ORIGIN"`
	WriteWait              time.Duration `env:"WRITE_WAIT,default=10s"`
	PongWait               time.Duration `env:"PONG_WAIT,default=60s"`
	MaxFrameSize           int64         `env:"MAX_FRAME_SIZE,default=65536"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}
