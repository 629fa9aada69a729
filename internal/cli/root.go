package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"colmena/internal/config"
	"colmena/internal/infra"
	"colmena/internal/repository"
	"colmena/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// lockTTL bounds how long an import or seed run may hold its Redis lock.
const lockTTL = 10 * time.Minute

// App holds the services the commands operate on.
type App struct {
	Categorias service.CategoriaService
	Productos  service.ProductoService
	Auth       service.AuthService
	Redis      *redis.Client

	close func()
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	app *App
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the colmenactl root command. The App is built from
// the environment on first use.
func NewRootCommand() *cobra.Command {
	return newRoot(nil)
}

// NewRootCommandWithApp runs every command against app instead of the environment.
func NewRootCommandWithApp(app *App) *cobra.Command {
	return newRoot(app)
}

func newRoot(app *App) *cobra.Command {
	opts := &RootOptions{app: app}

	cmd := &cobra.Command{
		Use:           "colmenactl",
		Short:         "Herramientas de operación de Colmena",
		Long:          "Importa catálogos, crea administradores y revisa el inventario de la tienda.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.app != nil {
				return nil
			}
			a, err := appFromEnv()
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.app != nil && opts.app.close != nil {
				opts.app.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newNormalizeCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newRecibosCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// appFromEnv opens the database (and Redis when reachable) from config.
func appFromEnv() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, infra.DBOptions{MaxOpenConns: 4})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, runs are not locked")
		rdb = nil
	}

	categoriaRepo := repository.NewCategoriaRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	app := &App{
		Categorias: service.NewCategoriaService(categoriaRepo, rdb, cfg.CategoryCacheTTL),
		Productos:  service.NewProductoService(productoRepo, categoriaRepo),
		Auth:       service.NewAuthService(repository.NewUsuarioRepository(db), cfg),
		Redis:      rdb,
	}
	app.close = func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app, nil
}

// locked runs fn under the colmenactl:<name> lock.
func (o *RootOptions) locked(ctx context.Context, name string, fn func(context.Context) error) error {
	err := infra.WithLock(ctx, o.app.Redis, "colmenactl:"+name, lockTTL, fn)
	if errors.Is(err, infra.ErrLockTaken) {
		return fmt.Errorf("otra ejecución de %q está en curso", name)
	}
	return err
}

// print writes v as indented JSON or, in text mode, the text line.
func (o *RootOptions) print(w io.Writer, v any, text string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
