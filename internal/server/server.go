package server

import (
	"github.com/SergeVo/WB-price-tracker/internal/database"
)

// Server exposes a small status HTTP API next to the bot: health and
// tracking statistics. It shares the Store with the bot and the checker.
type Server struct {
	DB     database.Database
	Logger logger
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}
