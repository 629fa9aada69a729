package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// deadLetterKey is the Redis list holding the parked jobs of queue.
func deadLetterKey(queue string) string { return "dlq:" + queue }

// DeadLetter is a job parked after exhausting its attempts, or one whose body
// could not be decoded. Raw holds the body when it was not valid JSON.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	VentaID  string          `json:"venta_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Raw      string          `json:"raw,omitempty"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

func newDeadLetter(queue, jobType string, body []byte, reason string, attempts int) DeadLetter {
	dl := DeadLetter{
		Queue:    queue,
		JobType:  jobType,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if !json.Valid(body) {
		dl.Raw = string(body)
		return dl
	}
	dl.Payload = body
	if jobType == JobRecibo {
		var p ReciboJobPayload
		if json.Unmarshal(body, &p) == nil {
			dl.VentaID = p.VentaID
		}
	}
	return dl
}

// park stores dl in its dead letter list. Without Redis the entry only reaches the log.
func park(ctx context.Context, rdb *redis.Client, dl DeadLetter) {
	data, err := json.Marshal(dl)
	if err != nil {
		log.Error().Err(err).Str("queue", dl.Queue).Msg("dlq: failed to marshal entry")
		return
	}
	if rdb == nil {
		log.Error().RawJSON("entry", data).Msg("dlq: no redis client, entry dropped")
		return
	}
	if err := rdb.LPush(ctx, deadLetterKey(dl.Queue), data).Err(); err != nil {
		log.Error().Err(err).Str("queue", dl.Queue).RawJSON("entry", data).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", dl.Queue).
		Str("job_type", dl.JobType).
		Str("venta_id", dl.VentaID).
		Str("reason", dl.Reason).
		Int("attempts", dl.Attempts).
		Msg("dlq: job parked")
}

// DeadLetters returns up to limit parked jobs of queue, newest first.
func DeadLetters(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]DeadLetter, error) {
	if rdb == nil {
		return nil, ErrQueueUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	raws, err := rdb.LRange(ctx, deadLetterKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: unreadable entry skipped")
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

// Requeue moves the parked jobs of queue back onto it and returns how many
// moved. Entries without a payload stay parked.
func Requeue(ctx context.Context, rdb *redis.Client, queue string) (int, error) {
	if rdb == nil {
		return 0, ErrQueueUnavailable
	}
	key := deadLetterKey(queue)
	n, err := rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	// Each entry is popped from the tail once; kept entries go back to the head.
	for i := int64(0); i < n; i++ {
		raw, err := rdb.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}

		var dl DeadLetter
		if json.Unmarshal([]byte(raw), &dl) != nil || len(dl.Payload) == 0 {
			if err := rdb.LPush(ctx, key, raw).Err(); err != nil {
				return moved, err
			}
			continue
		}
		job, err := json.Marshal(Job{Type: dl.JobType, Payload: dl.Payload})
		if err == nil {
			err = rdb.LPush(ctx, queue, job).Err()
		}
		if err != nil {
			_ = rdb.RPush(ctx, key, raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("moved", moved).Msg("dlq: jobs requeued")
	}
	return moved, nil
}
