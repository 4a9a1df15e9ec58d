// Command ordersctl - служебные операции над заказами: демо-данные, просмотр и выгрузка.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/linemk/print-orders/internal/app"
	"github.com/linemk/print-orders/internal/config"
	"github.com/linemk/print-orders/internal/lib/logger"
	"github.com/linemk/print-orders/internal/storage"
)

func main() {
	if err := rootCmd(openRepository).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openRepository подключается к БД по конфигу; closer закрывает соединение
func openRepository(configPath string) (storage.OrderStorage, func() error, error) {
	cfg := config.MustLoadFrom(configPath)
	// stdout занят выводом команд
	log := logger.SetupLoggerTo(cfg.Env, os.Stderr)

	db, err := app.OpenDB(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		return nil, nil, err
	}
	log.Debug("connected to database", slog.String("host", cfg.Database.Host), slog.String("name", cfg.Database.Name))
	return storage.NewOrderRepository(db), db.Close, nil
}
