package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
	"github.com/JonMunkholm/catalog/internal/export"
	"github.com/JonMunkholm/catalog/internal/logging"
)

var exportFlags struct {
	company   int64
	limit     int
	page      int
	sortBy    string
	sortOrder string
	out       string
	compress  string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write catalog data to a file",
}

var exportProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Export products as one JSON document",
	Long: `Export products in the same JSON document the streaming endpoints serve.

Without --company the first --limit products by id are written with a
"total" member. With --company one page of that company's products is
written with "company", "pagination" and "streamedCount" members.

Examples:
  # 100 products to stdout
  server export products

  # A large export, compressed
  server export products --limit 500000 --out products.json --compress zstd

  # Page 2 of a company's products sorted by price
  server export products --company 3 --page 2 --sort-by price --sort-order desc`,
	RunE: runExportProducts,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportProductsCmd)

	f := exportProductsCmd.Flags()
	f.Int64Var(&exportFlags.company, "company", 0, "export one company's products")
	f.IntVar(&exportFlags.limit, "limit", 0, "row cap (default EXPORT_DEFAULT_LIMIT, or the company page size)")
	f.IntVar(&exportFlags.page, "page", 0, "page number for --company exports")
	f.StringVar(&exportFlags.sortBy, "sort-by", "", "sort field for --company exports (default name)")
	f.StringVar(&exportFlags.sortOrder, "sort-order", "", "asc or desc")
	f.StringVarP(&exportFlags.out, "out", "o", "-", `output file, "-" for stdout`)
	f.StringVar(&exportFlags.compress, "compress", export.None, "none, gzip, zstd or lz4")
}

func runExportProducts(cmd *cobra.Command, args []string) error {
	if exportFlags.limit < 0 {
		return errors.New("--limit must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout may carry the document.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	service := core.NewService(database.New(pool), core.Options{
		MaxConcurrentExports: 1,
		ExportDefaultLimit:   cfg.Export.DefaultLimit,
		ExportMaxLimit:       cfg.Export.MaxLimit,
		CompanyPageSize:      cfg.Export.CompanyPageSize,
	})

	var (
		src database.RowSource
		env export.Envelope
	)
	if exportFlags.company != 0 {
		exp, err := service.ExportCompanyProducts(ctx, exportFlags.company, core.PageRequest{
			Page:      exportFlags.page,
			Limit:     exportFlags.limit,
			SortBy:    exportFlags.sortBy,
			SortOrder: exportFlags.sortOrder,
		})
		if err != nil {
			return err
		}
		src, env = exp.Source, exp.Envelope()
	} else {
		if src, err = service.ExportProducts(ctx, exportFlags.limit); err != nil {
			return err
		}
	}

	out, err := export.OpenOutput(exportFlags.out, exportFlags.compress)
	if err != nil {
		src.Close()
		return err
	}

	start := time.Now()
	res, runErr := export.Run(ctx, src, out, env, export.Options{FlushEvery: cfg.Export.FlushEvery})
	closeErr := out.Close()

	slog.Info("export finished",
		"outcome", res.Outcome,
		"rows", res.Rows,
		"path", out.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if runErr != nil {
		return fmt.Errorf("export products: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close output: %w", closeErr)
	}
	return nil
}
