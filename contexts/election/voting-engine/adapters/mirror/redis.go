package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "mirror"
	naturalKeyField    = "_key"
)

// RedisRemote stores each mirrored row as a hash at {prefix}:{table}:{id},
// with a string index from the natural key to the id and a set of ids per
// table.
type RedisRemote struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRemote(client redis.UniversalClient, prefix string) *RedisRemote {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRemote{client: client, prefix: prefix}
}

func (r *RedisRemote) Insert(ctx context.Context, row ports.RemoteRow) (string, error) {
	if err := checkTable(row.Table); err != nil {
		return "", err
	}
	id := uuid.NewString()
	indexKey := r.indexKey(row.Table, row.Key)
	claimed, err := r.client.SetNX(ctx, indexKey, id, 0).Result()
	if err != nil {
		return "", fmt.Errorf("remote %s insert: %w", row.Table, err)
	}
	if !claimed {
		return "", fmt.Errorf("remote %s: %w", row.Table, ports.ErrDuplicate)
	}

	values := encodeFields(row.Fields)
	values["id"] = id
	values[naturalKeyField] = indexKey
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.rowKey(row.Table, id), values)
	pipe.SAdd(ctx, r.tableKey(row.Table), id)
	if _, err := pipe.Exec(ctx); err != nil {
		r.client.Del(ctx, indexKey)
		return "", fmt.Errorf("remote %s insert: %w", row.Table, err)
	}
	return id, nil
}

func (r *RedisRemote) Update(ctx context.Context, table string, remoteID string, fields map[string]any) error {
	if err := checkTable(table); err != nil {
		return err
	}
	rowKey := r.rowKey(table, remoteID)
	exists, err := r.client.Exists(ctx, rowKey).Result()
	if err != nil {
		return fmt.Errorf("remote %s update: %w", table, err)
	}
	if exists == 0 {
		return ports.ErrRemoteRowMissing
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, rowKey, encodeFields(fields)).Err(); err != nil {
		return fmt.Errorf("remote %s update: %w", table, err)
	}
	return nil
}

func (r *RedisRemote) FindID(ctx context.Context, table string, key map[string]any) (string, bool, error) {
	if err := checkTable(table); err != nil {
		return "", false, err
	}
	if len(key) == 0 {
		return "", false, nil
	}
	id, err := r.client.Get(ctx, r.indexKey(table, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("remote %s lookup: %w", table, err)
	}
	return id, true, nil
}

func (r *RedisRemote) Delete(ctx context.Context, table string, remoteID string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	rowKey := r.rowKey(table, remoteID)
	indexKey, err := r.client.HGet(ctx, rowKey, naturalKeyField).Result()
	if errors.Is(err, redis.Nil) {
		return ports.ErrRemoteRowMissing
	}
	if err != nil {
		return fmt.Errorf("remote %s delete: %w", table, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, rowKey, indexKey)
	pipe.SRem(ctx, r.tableKey(table), remoteID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remote %s delete: %w", table, err)
	}
	return nil
}

// Row returns the stored hash for one remote row.
func (r *RedisRemote) Row(ctx context.Context, table string, remoteID string) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, r.rowKey(table, remoteID)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ports.ErrRemoteRowMissing
	}
	return values, nil
}

// IDs lists every remote id stored for table.
func (r *RedisRemote) IDs(ctx context.Context, table string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.tableKey(table)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisRemote) rowKey(table string, id string) string {
	return r.prefix + ":" + table + ":" + id
}

func (r *RedisRemote) tableKey(table string) string {
	return r.prefix + ":" + table + ":ids"
}

func (r *RedisRemote) indexKey(table string, key map[string]any) string {
	columns := make([]string, 0, len(key))
	for column := range key {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, column+"="+strings.ToLower(strings.TrimSpace(encodeValue(key[column]))))
	}
	return r.prefix + ":" + table + ":key:" + strings.Join(parts, "|")
}

func encodeFields(fields map[string]any) map[string]any {
	values := make(map[string]any, len(fields)+2)
	for column, value := range fields {
		values[column] = encodeValue(value)
	}
	return values
}

func encodeValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(typed)
	}
}

var _ ports.MirrorRemote = (*RedisRemote)(nil)
