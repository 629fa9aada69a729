package dto

// Respuesta is the success envelope: {success: true, message?, data}.
type Respuesta struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(data any) Respuesta { return Respuesta{Success: true, Data: data} }

func OKMensaje(msg string, data any) Respuesta {
	return Respuesta{Success: true, Message: msg, Data: data}
}
