package dto

type FavoritoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
}

// SincronizarFavoritosRequest merges a client-side favorites list. IDs is a
// pointer so a missing or non-array "favoritos" can be told apart from [].
type SincronizarFavoritosRequest struct {
	IDs *[]string `json:"favoritos"`
}

type FavoritosIDsResponse struct {
	Favoritos []string `json:"favoritos"`
}
