package utils

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// SetupSignalHandlers runs cleanup and exits on SIGINT or SIGTERM
func SetupSignalHandlers(logger *zap.Logger, cleanup func() error) {
	setupSignalHandlers(logger, cleanup, os.Exit)
}

func setupSignalHandlers(logger *zap.Logger, cleanup func() error, exit func(int)) chan<- os.Signal {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-c
		signal.Stop(c)
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

		if err := cleanup(); err != nil {
			logger.Error("Cleanup error", zap.Error(err))
			exit(1)
			return
		}
		exit(0)
	}()
	return c
}
