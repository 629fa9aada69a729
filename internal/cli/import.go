package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importa datos de catálogo",
	}
	cmd.AddCommand(newImportProductosCommand(opts))
	return cmd
}

func newImportProductosCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "productos <archivo>",
		Short: "Importa productos desde JSON o YAML",
		Long: `Crea los productos del archivo con el mismo formato que POST /api/products.
Los productos cuyo código ya existe se omiten.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productos, err := readProductos(args[0])
			if err != nil {
				return err
			}

			var creados, omitidos int
			err = opts.locked(cmd.Context(), "import-productos", func(ctx context.Context) error {
				var err error
				creados, omitidos, err = opts.app.Productos.Importar(ctx, productos)
				return err
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(),
				map[string]any{"leidos": len(productos), "creados": creados, "omitidos": omitidos},
				fmt.Sprintf("%d productos leídos, %d creados, %d omitidos", len(productos), creados, omitidos))
		},
	}
}
