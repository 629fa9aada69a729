package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"colmena/internal/worker"

	"github.com/spf13/cobra"
)

var errSinRedis = errors.New("la cola de recibos requiere Redis (REDIS_URL)")

func newRecibosCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recibos",
		Short: "Inspecciona los recibos que no se pudieron enviar",
	}

	var limit int64
	fallidos := &cobra.Command{
		Use:          "fallidos",
		Short:        "Lista los trabajos de recibo estacionados",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := worker.DeadLetters(cmd.Context(), opts.app.Redis, worker.QueueRecibos, limit)
			if errors.Is(err, worker.ErrQueueUnavailable) {
				return errSinRedis
			}
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return opts.print(cmd.OutOrStdout(), list, "")
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FECHA\tVENTA\tINTENTOS\tMOTIVO\t")
			for _, dl := range list {
				venta := dl.VentaID
				if venta == "" {
					venta = "N/A"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n", dl.FailedAt.Format("2006-01-02 15:04"), venta, dl.Attempts, dl.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d recibos fallidos\n", len(list))
			return err
		},
	}
	fallidos.Flags().Int64Var(&limit, "limit", 100, "máximo de entradas a mostrar")

	reencolar := &cobra.Command{
		Use:          "reencolar",
		Short:        "Devuelve los recibos fallidos a la cola de envío",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := worker.Requeue(cmd.Context(), opts.app.Redis, worker.QueueRecibos)
			if errors.Is(err, worker.ErrQueueUnavailable) {
				return errSinRedis
			}
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), map[string]any{"reencolados": n}, fmt.Sprintf("%d recibos reencolados", n))
		},
	}

	cmd.AddCommand(fallidos, reencolar)
	return cmd
}
