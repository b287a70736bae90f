package store

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	docKeyPrefix    = "clone:round:"
	markerKeySuffix = ":updated_at"
	channelPrefix   = "clone:round-updates:"

	// Abandoned rooms age out on their own.
	docTTL = 24 * time.Hour
)

// RedisStore backs the DocStore with redis: SET for documents, a companion
// write-marker key for staleness checks, and pub/sub for the subscription
// stream.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, roomID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, docKeyPrefix+roomID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// mergeWriteScript performs the marker compare and the write atomically, so
// two racing writers cannot interleave a stale document over a fresh one.
var mergeWriteScript = redis.NewScript(`
local marker = redis.call('GET', KEYS[2])
if marker and tonumber(marker) > tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('PUBLISH', KEYS[3], ARGV[1])
return 1
`)

func (s *RedisStore) MergeWrite(ctx context.Context, roomID string, doc []byte, updatedAt int64) error {
	keys := []string{
		docKeyPrefix + roomID,
		docKeyPrefix + roomID + markerKeySuffix,
		channelPrefix + roomID,
	}
	written, err := mergeWriteScript.Run(ctx, s.rdb, keys,
		doc,
		strconv.FormatInt(updatedAt, 10),
		strconv.FormatInt(docTTL.Milliseconds(), 10),
	).Int()
	if err != nil {
		return err
	}
	if written == 0 {
		zap.L().Debug(
			"stale merge-write dropped",
			zap.String("room_id", roomID),
			zap.Int64("updated_at", updatedAt),
		)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, roomID string) (<-chan []byte, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, channelPrefix+roomID)

	// Force the subscription to be established before we report success.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = pubsub.Close() }
	return out, stop, nil
}
