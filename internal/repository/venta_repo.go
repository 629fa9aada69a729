package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"colmena/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	FolioPrefix  = "VTA-"
	folioCounter = "ventas"
)

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	// NextFolioTx reserves the next folio number inside tx. The counter row stays
	// locked until tx ends, and a rolled back sale gives its number back.
	NextFolioTx(ctx context.Context, tx *gorm.DB) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	List(ctx context.Context) ([]model.Venta, error)
	ListBetween(ctx context.Context, desde, hasta time.Time) ([]model.Venta, error)
	SumTotal(ctx context.Context) (decimal.Decimal, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Omit("Vendedor").Create(v).Error
}

func (r *ventaRepo) NextFolioTx(ctx context.Context, tx *gorm.DB) (int, error) {
	db := tx.WithContext(ctx)

	res := db.Model(&model.FolioCounter{}).Where("nombre = ?", folioCounter).
		Update("valor", gorm.Expr("valor + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// First sale on this database: continue after the last stored folio.
		last, err := lastFolioNumber(db)
		if err != nil {
			return 0, err
		}
		ins := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.FolioCounter{Nombre: folioCounter, Valor: last + 1})
		if ins.Error != nil {
			return 0, ins.Error
		}
		if ins.RowsAffected == 0 {
			// Another transaction created the counter first.
			if err := db.Model(&model.FolioCounter{}).Where("nombre = ?", folioCounter).
				Update("valor", gorm.Expr("valor + 1")).Error; err != nil {
				return 0, err
			}
		}
	}

	var c model.FolioCounter
	if err := db.Where("nombre = ?", folioCounter).Take(&c).Error; err != nil {
		return 0, err
	}
	return c.Valor, nil
}

func lastFolioNumber(db *gorm.DB) (int, error) {
	var folios []string
	err := db.Model(&model.Venta{}).Order("created_at desc").Limit(1).Pluck("folio", &folios).Error
	if err != nil || len(folios) == 0 {
		return 0, err
	}
	return ParseFolio(folios[0]), nil
}

// ParseFolio returns the numeric suffix of a "VTA-NNNN" folio, or 0.
func ParseFolio(folio string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(folio, FolioPrefix))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden asc") }).
		Preload("Items.Producto").
		Preload("Vendedor").
		First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) List(ctx context.Context) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden asc") }).
		Preload("Vendedor").
		Order("created_at desc").
		Find(&ventas).Error
	return ventas, err
}

// ListBetween returns the sales created in [desde, hasta], oldest first.
func (r *ventaRepo) ListBetween(ctx context.Context, desde, hasta time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", desde.UTC(), hasta.UTC()).
		Order("created_at asc").
		Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) SumTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&model.Venta{}).Select("SUM(total)").Row().Scan(&total)
	if err != nil || !total.Valid {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}
