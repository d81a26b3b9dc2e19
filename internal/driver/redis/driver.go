// Package redis implements the KeyValue driver for Redis, backed by
// go-redis/redis/v8.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	client *goredis.Client
}

var _ driver.KeyValue = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	opts, err := goredis.ParseURL(cfg.URL())
	if err != nil {
		return nil, dberrors.InvalidConfig("invalid Redis connection URL: " + err.Error())
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	return &Driver{client: client}, nil
}

func (d *Driver) Category() model.DatabaseCategory { return model.CategoryKeyValue }

func (d *Driver) Close(ctx context.Context) error {
	return d.client.Close()
}

// ExecuteRaw runs an arbitrary Redis command line, e.g. "GET foo" or
// "HGETALL bar".
func (d *Driver) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	start := time.Now()
	parts := strings.Fields(strings.TrimSpace(query))
	if len(parts) == 0 {
		return nil, dberrors.InvalidConfig("empty command")
	}

	args := make([]interface{}, len(parts))
	for i, p := range parts {
		args[i] = p
	}

	result, err := d.client.Do(ctx, args...).Result()
	if err != nil && err != goredis.Nil {
		return nil, dberrors.Database("Redis error", err)
	}

	columns, rows := redisValueToResponse(result)
	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func redisValueToResponse(value interface{}) ([]model.ColumnDef, [][]model.CellValue) {
	columns := []model.ColumnDef{{Name: "result", DataType: "mixed"}}

	switch v := value.(type) {
	case nil:
		return columns, [][]model.CellValue{{model.Null()}}
	case int64:
		return columns, [][]model.CellValue{{model.IntValue(v)}}
	case string:
		return columns, [][]model.CellValue{{model.TextValue(v)}}
	case []interface{}:
		rows := make([][]model.CellValue, len(v))
		for i, item := range v {
			switch iv := item.(type) {
			case string:
				rows[i] = []model.CellValue{model.TextValue(iv)}
			case int64:
				rows[i] = []model.CellValue{model.IntValue(iv)}
			case nil:
				rows[i] = []model.CellValue{model.Null()}
			default:
				rows[i] = []model.CellValue{model.TextValue(fmt.Sprintf("%v", iv))}
			}
		}
		return columns, rows
	default:
		return columns, [][]model.CellValue{{model.TextValue(fmt.Sprintf("%v", v))}}
	}
}

// GetContainers returns the 16 numbered logical databases Redis exposes by
// default (SELECT 0..15).
func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	out := make([]model.ContainerInfo, 16)
	for i := 0; i < 16; i++ {
		out[i] = model.ContainerInfo{Name: fmt.Sprintf("db%d", i), ContainerType: "database"}
	}
	return out, nil
}

func (d *Driver) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	keys, err := d.ScanKeys(ctx, "*", 1000)
	if err != nil {
		return nil, err
	}
	out := make([]model.ItemInfo, len(keys))
	for i, k := range keys {
		out[i] = model.ItemInfo{Name: k, Container: container, Kind: "key"}
	}
	return out, nil
}

func (d *Driver) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	keyType, err := d.GetKeyType(ctx, item)
	if err != nil {
		return nil, err
	}
	return []model.FieldInfo{
		{Name: "key", DataType: "string", IsNullable: false, IsPrimary: true, OrdinalPosition: 1},
		{Name: "type", DataType: keyType, IsNullable: false, IsPrimary: false, OrdinalPosition: 2},
		{Name: "value", DataType: "mixed", IsNullable: true, IsPrimary: false, OrdinalPosition: 3},
	}, nil
}

func (d *Driver) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	start := time.Now()
	value, err := d.GetValue(ctx, item)
	if err != nil {
		return nil, err
	}

	columns := []model.ColumnDef{
		{Name: "key", DataType: "string"},
		{Name: "value", DataType: "mixed"},
	}
	rows := [][]model.CellValue{{model.TextValue(item), jsonValueToCell(value)}}

	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        1,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (d *Driver) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	count, err := d.client.DBSize(ctx).Result()
	if err != nil {
		return 0, dberrors.Database("Redis DBSIZE error", err)
	}
	return count, nil
}

func (d *Driver) GetValue(ctx context.Context, key string) (interface{}, error) {
	keyType, err := d.GetKeyType(ctx, key)
	if err != nil {
		return nil, err
	}

	switch keyType {
	case "string":
		val, err := d.client.Get(ctx, key).Result()
		if err != nil && err != goredis.Nil {
			return nil, dberrors.Database("Redis GET error", err)
		}
		return val, nil
	case "list":
		val, err := d.client.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, dberrors.Database("Redis LRANGE error", err)
		}
		return val, nil
	case "set":
		val, err := d.client.SMembers(ctx, key).Result()
		if err != nil {
			return nil, dberrors.Database("Redis SMEMBERS error", err)
		}
		return val, nil
	case "hash":
		val, err := d.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, dberrors.Database("Redis HGETALL error", err)
		}
		return val, nil
	case "zset":
		val, err := d.client.ZRangeByScoreWithScores(ctx, key, &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
		if err != nil {
			return nil, dberrors.Database("Redis ZRANGEBYSCORE error", err)
		}
		out := make([]map[string]interface{}, len(val))
		for i, z := range val {
			out[i] = map[string]interface{}{"member": z.Member, "score": z.Score}
		}
		return out, nil
	default:
		return nil, nil
	}
}

func (d *Driver) SetValue(ctx context.Context, key, value string, ttlSeconds *int64) error {
	var ttl time.Duration
	if ttlSeconds != nil {
		ttl = time.Duration(*ttlSeconds) * time.Second
	}
	if err := d.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return dberrors.Database("Redis SET error", err)
	}
	return nil
}

func (d *Driver) DeleteKeys(ctx context.Context, keys []string) (int64, error) {
	count, err := d.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, dberrors.Database("Redis DEL error", err)
	}
	return count, nil
}

func (d *Driver) GetKeyType(ctx context.Context, key string) (string, error) {
	keyType, err := d.client.Type(ctx, key).Result()
	if err != nil {
		return "", dberrors.Database("Redis TYPE error", err)
	}
	return keyType, nil
}

func (d *Driver) ScanKeys(ctx context.Context, pattern string, count int64) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, nextCursor, err := d.client.Scan(ctx, cursor, pattern, count).Result()
		if err != nil {
			return nil, dberrors.Database("Redis SCAN error", err)
		}
		cursor = nextCursor
		keys = append(keys, batch...)
		if cursor == 0 || int64(len(keys)) >= count {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func jsonValueToCell(value interface{}) model.CellValue {
	switch v := value.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.BoolValue(v)
	case string:
		return model.TextValue(v)
	case int64:
		return model.IntValue(v)
	case float64:
		return model.FloatValue(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return model.TextValue(fmt.Sprintf("%v", v))
		}
		return model.JsonValue(string(encoded))
	}
}
