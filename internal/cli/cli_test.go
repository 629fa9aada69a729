package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"colmena/internal/config"
	"colmena/internal/dto"
	"colmena/internal/infra"
	"colmena/internal/repository"
	"colmena/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	db, err := infra.NewDatabase("sqlite:file:"+uuid.NewString()+"?mode=memory&cache=shared", infra.DBOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	categoriaRepo := repository.NewCategoriaRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	return &App{
		Categorias: service.NewCategoriaService(categoriaRepo, nil, 0),
		Productos:  service.NewProductoService(productoRepo, categoriaRepo),
		Auth:       service.NewAuthService(repository.NewUsuarioRepository(db), cfg),
	}
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWithApp(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const semillasYAML = `
- categoria: Mieles
  subcategorias: [Multifloral, Mezquite]
- categoria: Derivados
  subcategorias:
    - Polen
`

func TestReadSemillas(t *testing.T) {
	fromYAML, err := readSemillas(writeFile(t, "categorias.yaml", semillasYAML))
	require.NoError(t, err)

	fromJSON, err := readSemillas(writeFile(t, "categorias.json",
		`[{"categoria":"Mieles","subcategorias":["Multifloral","Mezquite"]},{"categoria":"Derivados","subcategorias":["Polen"]}]`))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	require.Len(t, fromYAML, 2)
	assert.Equal(t, "Mieles", fromYAML[0].Categoria)
	assert.Equal(t, []string{"Multifloral", "Mezquite"}, fromYAML[0].Subcategorias)
}

func TestReadFile_Errors(t *testing.T) {
	_, err := readSemillas(filepath.Join(t.TempDir(), "no-existe.json"))
	assert.Error(t, err)

	path := writeFile(t, "rota.yml", "- categoria: [sin cerrar")
	_, err = readSemillas(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestReadProductos_YAMLDecimals(t *testing.T) {
	path := writeFile(t, "productos.yml", `
- codigo: MIEL-AZ
  nombre: Miel de Azahar
  categoria_id: 7d1c0c52-54a8-4a4e-9b84-0d4f3f6c1a10
  descripcion: Miel clara de flor de naranjo
  presentaciones:
    - sku: MIEL-AZ-250
      capacidad: 250 g
      precio_venta: 180.5
      stock: 12
`)
	productos, err := readProductos(path)
	require.NoError(t, err)
	require.Len(t, productos, 1)
	p := productos[0]
	assert.Equal(t, "MIEL-AZ", p.Codigo)
	require.Len(t, p.Presentaciones, 1)
	assert.True(t, decimal.RequireFromString("180.5").Equal(p.Presentaciones[0].PrecioVenta))
	assert.Equal(t, 12, p.Presentaciones[0].Stock)
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := run(t, newTestApp(t), "check", "productos", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestSeedCategorias(t *testing.T) {
	app := newTestApp(t)
	path := writeFile(t, "categorias.yaml", semillasYAML)

	out, err := run(t, app, "seed", "categorias", "-i", path)
	require.NoError(t, err)
	assert.Equal(t, "2 categorías leídas, 2 nuevas\n", out)

	out, err = run(t, app, "seed", "categorias", "-i", path, "--format", "json")
	require.NoError(t, err)
	var res struct {
		Leidas  int `json:"leidas"`
		Creadas int `json:"creadas"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Leidas)
	assert.Equal(t, 0, res.Creadas)

	arbol, err := app.Categorias.Arbol(context.Background())
	require.NoError(t, err)
	assert.Len(t, arbol, 2)

	out, err = run(t, app, "seed", "categorias", "--delete")
	require.NoError(t, err)
	assert.Equal(t, "Categorías eliminadas\n", out)

	arbol, err = app.Categorias.Arbol(context.Background())
	require.NoError(t, err)
	assert.Empty(t, arbol)
}

func TestSeedCategorias_FlagErrors(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "seed", "categorias")
	require.Error(t, err)
	assert.Equal(t, "indique --input o --delete", err.Error())

	_, err = run(t, app, "seed", "categorias", "-i", "x.json", "-d")
	assert.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "seed", "admin", "--email", "Admin@Colmena.mx", "--password", "secreto123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Administrador admin@colmena.mx listo ("), out)

	_, err = run(t, app, "seed", "admin", "--email", "admin@colmena.mx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestImportYCheckProductos(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	cat, err := app.Categorias.Crear(ctx, dto.CrearCategoriaRequest{Nombre: "Mieles"})
	require.NoError(t, err)

	productos := `[
  {"codigo":"MIEL-AZ","nombre":"Miel de Azahar","categoria_id":"` + cat.ID.String() + `","descripcion":"Miel clara",
   "presentaciones":[{"sku":"MIEL-AZ-250","capacidad":"250 g","precio_venta":"180","stock":12,"stock_minimo":3},
                     {"capacidad":"1 kg","precio_venta":"560","stock":1,"stock_minimo":2}]},
  {"codigo":"POLEN","nombre":"Polen de Abeja","categoria_id":"` + cat.ID.String() + `","descripcion":"Polen seco",
   "presentaciones":[{"sku":"POLEN-100","capacidad":"100 g","precio_venta":"95","stock":0,"stock_minimo":0}]}
]`
	path := writeFile(t, "productos.json", productos)

	out, err := run(t, app, "import", "productos", path)
	require.NoError(t, err)
	assert.Equal(t, "2 productos leídos, 2 creados, 0 omitidos\n", out)

	out, err = run(t, app, "import", "productos", path)
	require.NoError(t, err)
	assert.Equal(t, "2 productos leídos, 0 creados, 2 omitidos\n", out)

	out, err = run(t, app, "check", "productos")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^CODIGO\s+PRODUCTO\s+SKU\s+STOCK\s+MINIMO`, lines[0])
	assert.Contains(t, out, "N/A")
	assert.Equal(t, "2 productos, 2 presentaciones en stock bajo", lines[4])

	out, err = run(t, app, "check", "productos", "--format", "json")
	require.NoError(t, err)
	var list []dto.ProductoResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 2)

	out, err = run(t, app, "normalize", "productos")
	require.NoError(t, err)
	assert.Equal(t, "2 productos normalizados\n", out)
}

func TestImportProductos_RequiresFile(t *testing.T) {
	_, err := run(t, newTestApp(t), "import", "productos")
	assert.Error(t, err)
}

func TestRecibos_SinRedis(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "recibos", "fallidos")
	assert.ErrorIs(t, err, errSinRedis)

	_, err = run(t, app, "recibos", "reencolar")
	assert.ErrorIs(t, err, errSinRedis)
}
