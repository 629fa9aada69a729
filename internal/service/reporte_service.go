package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"colmena/internal/apierror"
	"colmena/internal/dto"
	"colmena/internal/model"
	"colmena/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ReporteService serves the read-only projections over sales.
type ReporteService interface {
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	VentasPorPeriodo(ctx context.Context, periodo string) ([]dto.PeriodoVentas, error)
	Historial(ctx context.Context, filter dto.HistorialFilter) ([]dto.HistorialDia, error)
	// ExportarExcel renders every sale into an xlsx workbook and returns it with its file name.
	ExportarExcel(ctx context.Context) (*bytes.Buffer, string, error)
}

type reporteService struct {
	ventaRepo    repository.VentaRepository
	productoRepo repository.ProductoRepository
	usuarioRepo  repository.UsuarioRepository
	now          func() time.Time
}

func NewReporteService(
	ventaRepo repository.VentaRepository,
	productoRepo repository.ProductoRepository,
	usuarioRepo repository.UsuarioRepository,
) ReporteService {
	return &reporteService{
		ventaRepo:    ventaRepo,
		productoRepo: productoRepo,
		usuarioRepo:  usuarioRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var mesesCortos = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// Crecimiento returns (actual-anterior)/anterior*100. A zero previous period
// yields 100 when the current one has sales and 0 otherwise.
func Crecimiento(actual, anterior decimal.Decimal) decimal.Decimal {
	if anterior.IsZero() {
		if actual.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return actual.Sub(anterior).Div(anterior).Mul(decimal.NewFromInt(100))
}

func inicioDeMes(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *reporteService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	now := s.now().UTC()

	total, err := s.ventaRepo.SumTotal(ctx)
	if err != nil {
		return nil, err
	}
	productos, err := s.productoRepo.CountActivos(ctx)
	if err != nil {
		return nil, err
	}
	nuevos, err := s.usuarioRepo.CountCreatedSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	desde := inicioDeMes(now).AddDate(0, -6, 0)
	ventas, err := s.ventaRepo.ListBetween(ctx, desde, now)
	if err != nil {
		return nil, err
	}
	labels, data := seriesMensual(ventas, now)

	actual, anterior := data[len(data)-1], data[len(data)-2]
	return &dto.DashboardResponse{
		TotalSales:           total,
		TotalProducts:        productos,
		NewCustomers:         nuevos,
		Labels:               labels,
		SalesData:            data,
		MonthlyRevenueGrowth: Crecimiento(actual, anterior).Round(1),
	}, nil
}

// seriesMensual sums totals for the current month and the six before it.
// Months without sales are reported as zero.
func seriesMensual(ventas []model.Venta, now time.Time) ([]string, []decimal.Decimal) {
	const meses = 7
	inicio := inicioDeMes(now).AddDate(0, -(meses - 1), 0)
	labels := make([]string, meses)
	data := make([]decimal.Decimal, meses)
	for i := 0; i < meses; i++ {
		labels[i] = mesesCortos[inicio.AddDate(0, i, 0).Month()-1]
		data[i] = decimal.Zero
	}
	for _, v := range ventas {
		c := v.CreatedAt.UTC()
		idx := (c.Year()-inicio.Year())*12 + int(c.Month()-inicio.Month())
		if idx < 0 || idx >= meses {
			continue
		}
		data[idx] = data[idx].Add(v.Total)
	}
	return labels, data
}

// periodos maps a period name to its window and bucket label.
var periodos = map[string]struct {
	desde func(time.Time) time.Time
	label func(time.Time) string
}{
	"day": {
		desde: func(t time.Time) time.Time { return t.AddDate(0, 0, -7) },
		label: func(t time.Time) string { return t.Format("2006-01-02") },
	},
	"week": {
		desde: func(t time.Time) time.Time { return t.AddDate(0, 0, -28) },
		label: semanaDelAnio,
	},
	"month": {
		desde: func(t time.Time) time.Time { return t.AddDate(0, -7, 0) },
		label: func(t time.Time) string { return t.Format("2006-01") },
	},
	"year": {
		desde: func(t time.Time) time.Time { return t.AddDate(-4, 0, 0) },
		label: func(t time.Time) string { return t.Format("2006") },
	},
}

// semanaDelAnio labels t as YYYY-WW where weeks start on Sunday and days
// before the first Sunday of the year fall in week 00.
func semanaDelAnio(t time.Time) string {
	yday := t.YearDay() - 1
	semana := (yday + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%04d-%02d", t.Year(), semana)
}

func (s *reporteService) VentasPorPeriodo(ctx context.Context, periodo string) ([]dto.PeriodoVentas, error) {
	p, ok := periodos[periodo]
	if !ok {
		return nil, apierror.Validation("Período no válido")
	}
	now := s.now().UTC()
	ventas, err := s.ventaRepo.ListBetween(ctx, p.desde(now), now)
	if err != nil {
		return nil, err
	}
	return agrupar(ventas, p.label), nil
}

// agrupar buckets sales by label and returns the buckets sorted by label.
func agrupar(ventas []model.Venta, label func(time.Time) string) []dto.PeriodoVentas {
	idx := map[string]int{}
	out := []dto.PeriodoVentas{}
	for _, v := range ventas {
		k := label(v.CreatedAt.UTC())
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, dto.PeriodoVentas{Periodo: k, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(v.Total)
		out[i].Ventas++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Periodo < out[b].Periodo })
	return out
}

func parseFecha(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func (s *reporteService) Historial(ctx context.Context, filter dto.HistorialFilter) ([]dto.HistorialDia, error) {
	if strings.TrimSpace(filter.StartDate) == "" || strings.TrimSpace(filter.EndDate) == "" {
		return nil, apierror.Validation("Fechas no proporcionadas.")
	}
	desde, ok1 := parseFecha(filter.StartDate)
	hasta, ok2 := parseFecha(filter.EndDate)
	if !ok1 || !ok2 {
		return nil, apierror.Validation("Formato de fecha inválido, use AAAA-MM-DD")
	}
	// The end day is included in full.
	hasta = time.Date(hasta.Year(), hasta.Month(), hasta.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if hasta.Before(desde) {
		return nil, apierror.Validation("La fecha inicial debe ser anterior a la final")
	}

	ventas, err := s.ventaRepo.ListBetween(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}
	dias := agrupar(ventas, func(t time.Time) string { return t.Format("2006-01-02") })
	out := make([]dto.HistorialDia, 0, len(dias))
	for _, d := range dias {
		t, _ := time.Parse("2006-01-02", d.Periodo)
		out = append(out, dto.HistorialDia{Fecha: t.Format("02/01/2006"), Total: d.Total, Ventas: d.Ventas})
	}
	return out, nil
}

// ── Excel export ──────────────────────────────────────────────────────────────

const hojaVentas = "Ventas"

var columnasExcel = []struct {
	titulo string
	ancho  float64
}{
	{"Folio", 12}, {"Fecha", 20}, {"Cliente", 25}, {"Email Cliente", 28}, {"RFC Cliente", 16},
	{"Vendedor", 22}, {"Método de Pago", 16}, {"Estado", 12}, {"Subtotal", 12}, {"Descuento", 12},
	{"IVA", 10}, {"Total", 12}, {"Moneda", 8}, {"Ubicación Venta", 20}, {"Notas", 30}, {"Productos", 50},
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// filaExcel returns the cell values of one sale, in column order.
func filaExcel(v *model.Venta) []any {
	vendedor := ""
	if v.Vendedor != nil {
		vendedor = v.Vendedor.Nombre
	}
	lineas := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		sku := deref(it.SKU)
		if sku == "" {
			sku = "N/A"
		}
		lineas = append(lineas, fmt.Sprintf("%d x %s (SKU: %s) @ $%s", it.Cantidad, it.Nombre, sku, it.PrecioUnitario.StringFixed(2)))
	}
	return []any{
		v.Folio,
		v.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		v.Cliente.Nombre,
		deref(v.Cliente.Email),
		deref(v.Cliente.RFC),
		vendedor,
		v.MetodoPago,
		v.Estado,
		v.Subtotal.InexactFloat64(),
		v.Descuento.InexactFloat64(),
		v.IVA.InexactFloat64(),
		v.Total.InexactFloat64(),
		v.Moneda,
		deref(v.UbicacionVenta),
		deref(v.Notas),
		strings.Join(lineas, "\n"),
	}
}

// renderFilas is the plain text rendering of the export rows, one cell per
// field separated by " | ", used to compare exports.
func renderFilas(ventas []model.Venta) string {
	var b strings.Builder
	titulos := make([]string, len(columnasExcel))
	for i, c := range columnasExcel {
		titulos[i] = c.titulo
	}
	b.WriteString(strings.Join(titulos, " | "))
	b.WriteString("\n")
	for i := range ventas {
		celdas := filaExcel(&ventas[i])
		parts := make([]string, len(celdas))
		for j, c := range celdas {
			switch val := c.(type) {
			case float64:
				parts[j] = fmt.Sprintf("%.2f", val)
			default:
				parts[j] = strings.ReplaceAll(fmt.Sprint(val), "\n", "; ")
			}
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *reporteService) ExportarExcel(ctx context.Context) (*bytes.Buffer, string, error) {
	ventas, err := s.ventaRepo.List(ctx)
	if err != nil {
		return nil, "", err
	}
	buf, err := construirExcel(ventas)
	if err != nil {
		return nil, "", apierror.Internal("generar excel", err)
	}
	nombre := fmt.Sprintf("Reporte_Ventas_%s.xlsx", s.now().Format("2006-01-02"))
	return buf, nombre, nil
}

func construirExcel(ventas []model.Venta) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), hojaVentas); err != nil {
		return nil, err
	}

	borde := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	encabezado, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"002060"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borde,
	})
	if err != nil {
		return nil, err
	}
	multilinea, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, err
	}

	for i, c := range columnasExcel {
		celda, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(hojaVentas, celda, c.titulo); err != nil {
			return nil, err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(hojaVentas, col, col, c.ancho); err != nil {
			return nil, err
		}
	}
	ultima, _ := excelize.CoordinatesToCellName(len(columnasExcel), 1)
	if err := f.SetCellStyle(hojaVentas, "A1", ultima, encabezado); err != nil {
		return nil, err
	}

	for i := range ventas {
		row := i + 2
		celdas := filaExcel(&ventas[i])
		for j, val := range celdas {
			celda, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(hojaVentas, celda, val); err != nil {
				return nil, err
			}
		}
		if n := len(ventas[i].Items); n > 1 {
			if err := f.SetRowHeight(hojaVentas, row, float64(15*n)); err != nil {
				return nil, err
			}
			desde, _ := excelize.CoordinatesToCellName(1, row)
			hasta, _ := excelize.CoordinatesToCellName(len(columnasExcel), row)
			if err := f.SetCellStyle(hojaVentas, desde, hasta, multilinea); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}
