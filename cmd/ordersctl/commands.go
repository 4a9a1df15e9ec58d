package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/print-orders/internal/domain/models"
	"github.com/linemk/print-orders/internal/lib/csvexport"
	"github.com/linemk/print-orders/internal/storage"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type repoOpener func(configPath string) (storage.OrderStorage, func() error, error)

// DemoCode код демонстрационного заказа
const DemoCode = "DEMO01"

func rootCmd(open repoOpener) *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:           "ordersctl",
		Short:         "Maintenance commands for print orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: CONFIG_PATH or environment)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")

	// withRepo открывает хранилище на время выполнения команды
	withRepo := func(fn func(ctx context.Context, cmd *cobra.Command, repo storage.OrderStorage) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			repo, closeRepo, err := open(configPath)
			if err != nil {
				return err
			}
			defer closeRepo()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return fn(ctx, cmd, repo)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the demo order " + DemoCode,
			Args:  cobra.NoArgs,
			RunE:  withRepo(seed),
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print all orders as a table, newest first",
			Args:  cobra.NoArgs,
			RunE:  withRepo(list),
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write all orders as CSV to stdout",
			Args:  cobra.NoArgs,
			RunE:  withRepo(export),
		},
	)
	return cmd
}

func seed(ctx context.Context, cmd *cobra.Command, repo storage.OrderStorage) error {
	_, err := repo.CreateOrder(ctx, &models.Order{
		Code:      DemoCode,
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Phone:     "123-456",
		Details:   "Demo print: 10x A4, color, double-sided",
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, storage.ErrCodeTaken) {
		fmt.Fprintf(cmd.OutOrStdout(), "Sample order already present (code=%s)\n", DemoCode)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert sample order: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sample order added (code=%s)\n", DemoCode)
	return nil
}

func list(ctx context.Context, cmd *cobra.Command, repo storage.OrderStorage) error {
	orders, err := repo.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("ID", "Code", "Name", "Email", "Phone", "File", "Created")
	for _, o := range orders {
		file := ""
		if o.File != nil {
			file = o.File.OriginalName
		}
		row := []string{
			fmt.Sprint(o.ID), o.Code, o.Name, o.Email, o.Phone, file,
			o.CreatedAt.UTC().Format(time.DateTime),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render row: %w", err)
		}
	}
	return table.Render()
}

func export(ctx context.Context, cmd *cobra.Command, repo storage.OrderStorage) error {
	orders, err := repo.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}
	return csvexport.WriteOrders(cmd.OutOrStdout(), orders)
}
