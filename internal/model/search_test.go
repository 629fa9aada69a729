package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizar(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Miel Orgánica", "miel organica"},
		{"  Polen   de  ABEJA ", "polen de abeja"},
		{"Jalea Real Ñandú", "jalea real nandu"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalizar(tt.in), tt.in)
	}
}

func TestNormalizarEmail(t *testing.T) {
	assert.Equal(t, "ana@colmena.mx", NormalizarEmail("  Ana@Colmena.MX "))
}

func TestJoinBusqueda(t *testing.T) {
	sku := "MIEL-01"
	vacio := ""
	assert.Equal(t, "miel cruda miel-01", joinBusqueda(strPtr("Miel Cruda"), nil, &vacio, &sku))
}

func TestEnsureID(t *testing.T) {
	var id uuid.UUID
	ensureID(&id)
	assert.NotEqual(t, uuid.Nil, id)

	fijo := uuid.New()
	prev := fijo
	ensureID(&fijo)
	assert.Equal(t, prev, fijo)
}

func strPtr(s string) *string { return &s }
