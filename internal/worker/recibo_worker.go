package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"colmena/internal/infra"
	"colmena/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReciboJobPayload is the job envelope sent to QueueRecibos.
type ReciboJobPayload struct {
	VentaID string `json:"venta_id"`
	Email   string `json:"email"`
}

type ventaLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
}

type reciboSender interface {
	Enabled() bool
	SendRecibo(to, subject, body, pdfPath string) error
}

// ReciboWorker renders the PDF receipt of a sale and mails it to the client.
// Sends go through the circuit breaker so a dead SMTP relay fails fast.
type ReciboWorker struct {
	ventas      ventaLoader
	mailer      reciboSender
	breaker     *infra.CircuitBreaker
	tienda      string
	storagePath string
	render      func(v *model.Venta, tienda, storagePath string) (string, error)
}

func NewReciboWorker(ventas ventaLoader, mailer reciboSender, breaker *infra.CircuitBreaker, tienda, storagePath string) *ReciboWorker {
	return &ReciboWorker{
		ventas:      ventas,
		mailer:      mailer,
		breaker:     breaker,
		tienda:      tienda,
		storagePath: storagePath,
		render:      infra.GenerateReciboPDF,
	}
}

func (w *ReciboWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReciboJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("recibo_worker: invalid payload: %w", err))
	}
	if payload.Email == "" {
		log.Warn().Str("venta_id", payload.VentaID).Msg("recibo_worker: empty email, skipping")
		return nil
	}
	ventaID, err := uuid.Parse(payload.VentaID)
	if err != nil {
		return Permanent(fmt.Errorf("recibo_worker: invalid venta_id %q", payload.VentaID))
	}

	venta, err := w.ventas.FindByID(ctx, ventaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("recibo_worker: venta %s not found", ventaID))
		}
		return err
	}

	pdfPath, err := w.render(venta, w.tienda, w.storagePath)
	if err != nil {
		return fmt.Errorf("recibo_worker: pdf: %w", err)
	}
	log.Info().Str("worker", "recibo").Str("venta_id", payload.VentaID).Str("pdf", pdfPath).Msg("recibo generado")

	if w.mailer == nil || !w.mailer.Enabled() {
		log.Warn().Str("worker", "recibo").Str("venta_id", payload.VentaID).Msg("recibo_worker: SMTP not configured, email skipped")
		return nil
	}

	subject := fmt.Sprintf("Recibo de compra %s en %s", venta.Folio, w.tienda)
	body := fmt.Sprintf("Hola %s,\n\nAdjuntamos el recibo de tu compra %s.\nTotal: $%s %s\n\n¡Gracias por tu compra!",
		venta.Cliente.Nombre, venta.Folio, venta.Total.StringFixed(2), venta.Moneda)

	send := func() error { return w.mailer.SendRecibo(payload.Email, subject, body, pdfPath) }
	if w.breaker != nil {
		err = w.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		return fmt.Errorf("recibo_worker: send: %w", err)
	}
	log.Info().Str("worker", "recibo").Str("venta_id", payload.VentaID).Str("to", payload.Email).Msg("recibo enviado")
	return nil
}
