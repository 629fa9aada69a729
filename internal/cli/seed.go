package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Carga datos iniciales",
	}
	cmd.AddCommand(newSeedCategoriasCommand(opts))
	cmd.AddCommand(newSeedAdminCommand(opts))
	return cmd
}

type seedCategoriasOptions struct {
	input  string
	delete bool
}

func newSeedCategoriasCommand(opts *RootOptions) *cobra.Command {
	o := &seedCategoriasOptions{}

	cmd := &cobra.Command{
		Use:   "categorias",
		Short: "Importa o elimina el árbol de categorías",
		Long: `Importa categorías y subcategorías desde un archivo JSON o YAML con la forma
[{"categoria": "Mieles", "subcategorias": ["Multifloral", "Mezquite"]}].
Las categorías existentes se actualizan por nombre.`,
		Example: `  colmenactl seed categorias -i categorias.yaml
  colmenactl seed categorias -d`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedCategorias(cmd, opts, o)
		},
	}

	cmd.Flags().StringVarP(&o.input, "input", "i", "", "archivo de categorías (.json, .yaml)")
	cmd.Flags().BoolVarP(&o.delete, "delete", "d", false, "elimina todas las categorías y subcategorías")
	cmd.MarkFlagsMutuallyExclusive("input", "delete")

	return cmd
}

func runSeedCategorias(cmd *cobra.Command, opts *RootOptions, o *seedCategoriasOptions) error {
	out := cmd.OutOrStdout()

	if o.delete {
		err := opts.locked(cmd.Context(), "seed-categorias", func(ctx context.Context) error {
			return opts.app.Categorias.EliminarTodo(ctx)
		})
		if err != nil {
			return err
		}
		return opts.print(out, map[string]any{"eliminadas": true}, "Categorías eliminadas")
	}

	if o.input == "" {
		return errors.New("indique --input o --delete")
	}
	semillas, err := readSemillas(o.input)
	if err != nil {
		return err
	}

	var creadas int
	err = opts.locked(cmd.Context(), "seed-categorias", func(ctx context.Context) error {
		var err error
		creadas, err = opts.app.Categorias.Importar(ctx, semillas)
		return err
	})
	if err != nil {
		return err
	}
	return opts.print(out,
		map[string]any{"leidas": len(semillas), "creadas": creadas},
		fmt.Sprintf("%d categorías leídas, %d nuevas", len(semillas), creadas))
}

type seedAdminOptions struct {
	nombre   string
	email    string
	password string
}

func newSeedAdminCommand(opts *RootOptions) *cobra.Command {
	o := &seedAdminOptions{}

	cmd := &cobra.Command{
		Use:          "admin",
		Short:        "Crea o actualiza una cuenta de administrador",
		Example:      `  colmenactl seed admin --email admin@colmena.mx --password secreto --name Admin`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := opts.app.Auth.UpsertAdmin(cmd.Context(), o.nombre, o.email, o.password)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), u, fmt.Sprintf("Administrador %s listo (%s)", u.Email, u.ID))
		},
	}

	cmd.Flags().StringVar(&o.nombre, "name", "Administrador", "nombre del administrador")
	cmd.Flags().StringVar(&o.email, "email", "", "correo del administrador")
	cmd.Flags().StringVar(&o.password, "password", "", "contraseña (mínimo 6 caracteres)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
