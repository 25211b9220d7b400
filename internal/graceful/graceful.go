package graceful

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"thepup/internal/utils/logger/sl"
)

// Operation: функция остановки одного из сервисов.
type Operation func(ctx context.Context) error

// GracefulShutdown ждёт SIGINT/SIGTERM и параллельно выполняет все операции остановки.
// Возвращаемый канал закрывается, когда все операции завершены или истёк timeout.
func GracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]Operation, log *slog.Logger) <-chan struct{} {
	wait := make(chan struct{})

	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		<-s

		log.Info("shutting down")

		timeoutFunc := time.AfterFunc(timeout, func() {
			log.Warn("timeout elapsed, force exit", slog.Duration("timeout", timeout))
			os.Exit(1)
		})
		defer timeoutFunc.Stop()

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var wg sync.WaitGroup
		for key, op := range ops {
			wg.Add(1)
			go func(innerKey string, innerOp Operation) {
				defer wg.Done()

				log.Info("cleaning up", slog.String("service", innerKey))
				if err := innerOp(shutdownCtx); err != nil {
					log.Error("clean up failed", slog.String("service", innerKey), sl.Err(err))
					return
				}

				log.Info("was shutdown gracefully", slog.String("service", innerKey))
			}(key, op)
		}

		wg.Wait()
		close(wait)
	}()

	return wait
}
