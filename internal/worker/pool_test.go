package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls    int
	failures int
	payload  json.RawMessage
}

func (h *countingHandler) Process(_ context.Context, payload json.RawMessage) error {
	h.calls++
	h.payload = payload
	if h.calls <= h.failures {
		return errors.New("temporal")
	}
	return nil
}

func TestDispatcher_SinRedis(t *testing.T) {
	err := NewDispatcher(nil).EnqueueRecibo(context.Background(), uuid.New(), "a@b.mx")
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	var d *Dispatcher
	assert.ErrorIs(t, d.EnqueueRecibo(context.Background(), uuid.New(), "a@b.mx"), ErrQueueUnavailable)
}

func TestProcessJob_ReintentaHastaExito(t *testing.T) {
	noBackoff(t)
	h := &countingHandler{failures: 2}
	raw, err := json.Marshal(Job{Type: JobRecibo, Payload: json.RawMessage(`{"venta_id":"x"}`)})
	require.NoError(t, err)

	processJob(context.Background(), nil, map[string]Handler{JobRecibo: h}, QueueRecibos, string(raw))

	assert.Equal(t, 3, h.calls)
	assert.JSONEq(t, `{"venta_id":"x"}`, string(h.payload))
}

func TestProcessJob_AgotaIntentos(t *testing.T) {
	noBackoff(t)
	h := &countingHandler{failures: 10}
	raw, err := json.Marshal(Job{Type: JobRecibo, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	processJob(context.Background(), nil, map[string]Handler{JobRecibo: h}, QueueRecibos, string(raw))
	assert.Equal(t, maxAttempts, h.calls)
}

func TestProcessJob_TipoDesconocidoOSobreInvalido(t *testing.T) {
	h := &countingHandler{}
	handlers := map[string]Handler{JobRecibo: h}

	processJob(context.Background(), nil, handlers, QueueRecibos, `{"type":"factura","payload":{}}`)
	processJob(context.Background(), nil, handlers, QueueRecibos, `no es json`)
	assert.Zero(t, h.calls)
}
