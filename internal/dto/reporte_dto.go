package dto

import "github.com/shopspring/decimal"

type DashboardResponse struct {
	TotalSales           decimal.Decimal   `json:"totalSales"`
	TotalProducts        int64             `json:"totalProducts"`
	NewCustomers         int64             `json:"newCustomers"`
	Labels               []string          `json:"labels"`
	SalesData            []decimal.Decimal `json:"salesData"`
	MonthlyRevenueGrowth decimal.Decimal   `json:"monthlyRevenueGrowth"`
}

// PeriodoVentas is one bucket of GET /sales/sales-by-period.
type PeriodoVentas struct {
	Periodo string          `json:"_id"`
	Total   decimal.Decimal `json:"total"`
	Ventas  int             `json:"count"`
}

type HistorialFilter struct {
	StartDate string `form:"startDate" validate:"required"`
	EndDate   string `form:"endDate"   validate:"required"`
}

// HistorialDia is one day of GET /sales/history.
type HistorialDia struct {
	Fecha  string          `json:"fecha"` // DD/MM/YYYY
	Total  decimal.Decimal `json:"total"`
	Ventas int             `json:"ventas"`
}
