package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each run as a list of JSON-encoded checkpoints.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a store over a redis client. A positive ttl expires a run's history
// after its last write.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(runID string) string {
	return r.prefix + runID
}

// appendScript appends ARGV[1] when its step (ARGV[2]) exceeds the step of the
// list's tail, refreshing the ttl (ARGV[3], milliseconds) when positive. It
// returns -1 on append, otherwise the tail's step.
var appendScript = redis.NewScript(`
local tail = redis.call('LINDEX', KEYS[1], -1)
if tail then
	local step = cjson.decode(tail).step
	if step >= tonumber(ARGV[2]) then
		return step
	end
end
redis.call('RPUSH', KEYS[1], ARGV[1])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return -1
`)

// Save checks the step order and appends in one script so concurrent writers
// on a run cannot interleave.
func (r *Redis) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}

	latest, err := appendScript.Run(ctx, r.client, []string{r.key(cp.RunID)},
		data, cp.Step, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}
	if latest >= 0 {
		return persistenceError("save", cp.RunID,
			fmt.Errorf("%w: step %d after %d", ErrStepOrder, cp.Step, latest))
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := r.client.LIndex(ctx, r.key(runID), -1).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("latest", runID, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, persistenceError("latest", runID, err)
	}
	return &cp, nil
}

func (r *Redis) List(ctx context.Context, runID string) ([]Checkpoint, error) {
	items, err := r.client.LRange(ctx, r.key(runID), 0, -1).Result()
	if err != nil {
		return nil, persistenceError("list", runID, err)
	}

	out := make([]Checkpoint, 0, len(items))
	for _, item := range items {
		var cp Checkpoint
		if err := json.Unmarshal([]byte(item), &cp); err != nil {
			return nil, persistenceError("list", runID, err)
		}
		out = append(out, cp)
	}
	return out, nil
}
