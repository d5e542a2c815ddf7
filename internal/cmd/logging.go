package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = slog.Default()

// initLogging builds the process logger from the verbose, log-format and
// log-file settings and installs it as the slog default.
func initLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	if name := viper.GetString("log-file"); name != "" {
		w = &lumberjack.Logger{
			Filename:   name,
			MaxSize:    viper.GetInt("log-max-size"),
			MaxBackups: viper.GetInt("log-max-backups"),
			LocalTime:  true,
		}
	}

	var h slog.Handler
	if strings.EqualFold(viper.GetString("log-format"), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}
