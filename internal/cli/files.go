package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"colmena/internal/dto"
	"colmena/internal/service"

	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decodeFile reads a JSON or YAML file into v. YAML goes through JSON so the
// json tags of v apply to both formats.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// readSemillas loads a [{categoria, subcategorias[]}] seed file.
func readSemillas(path string) ([]service.SemillaCategoria, error) {
	var semillas []service.SemillaCategoria
	if err := decodeFile(path, &semillas); err != nil {
		return nil, err
	}
	return semillas, nil
}

// readProductos loads a list of products in the API request shape.
func readProductos(path string) ([]dto.ProductoRequest, error) {
	var productos []dto.ProductoRequest
	if err := decodeFile(path, &productos); err != nil {
		return nil, err
	}
	return productos, nil
}
