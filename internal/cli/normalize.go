package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newNormalizeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Recalcula columnas derivadas",
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "productos",
		Short:        "Recalcula las columnas de búsqueda sin acentos",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			err := opts.locked(cmd.Context(), "normalize-productos", func(ctx context.Context) error {
				var err error
				n, err = opts.app.Productos.Normalizar(ctx)
				return err
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(),
				map[string]any{"actualizados": n},
				fmt.Sprintf("%d productos normalizados", n))
		},
	})
	return cmd
}
