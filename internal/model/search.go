package model

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizar lowercases s and strips diacritics, so "Miel Orgánica" and
// "miel organica" produce the same search key.
func Normalizar(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

func joinBusqueda(parts ...*string) string {
	vals := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != nil && *p != "" {
			vals = append(vals, *p)
		}
	}
	return Normalizar(strings.Join(vals, " "))
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
