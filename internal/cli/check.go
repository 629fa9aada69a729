package cli

import (
	"fmt"
	"text/tabwriter"

	"colmena/internal/dto"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Consultas de diagnóstico",
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "productos",
		Short:        "Lista el stock de cada presentación",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productos, err := opts.app.Productos.ListarTodos(cmd.Context())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return opts.print(cmd.OutOrStdout(), productos, "")
			}
			return writeStock(cmd, productos)
		},
	})
	return cmd
}

func writeStock(cmd *cobra.Command, productos []dto.ProductoResponse) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODIGO\tPRODUCTO\tSKU\tSTOCK\tMINIMO\t")
	bajo := 0
	for _, p := range productos {
		for _, pr := range p.Presentaciones {
			sku := "N/A"
			if pr.SKU != nil && *pr.SKU != "" {
				sku = *pr.SKU
			}
			marca := ""
			if pr.Stock <= pr.StockMinimo {
				marca = "bajo"
				bajo++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", p.Codigo, p.Nombre, sku, pr.Stock, pr.StockMinimo, marca)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d productos, %d presentaciones en stock bajo\n", len(productos), bajo)
	return err
}
