package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New 创建全局 logger。debug 模式下输出彩色控制台格式，否则输出 JSON。
func New(debug bool) zerolog.Logger {
	var writer io.Writer
	if debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		writer = os.Stdout
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	l := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = l
	return l
}
