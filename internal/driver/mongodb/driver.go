// Package mongodb implements the Document driver for MongoDB, backed by
// go.mongodb.org/mongo-driver.
package mongodb

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	client *mongo.Client
}

var _ driver.Document = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	opts := options.Client().ApplyURI(cfg.URL())
	if cfg.UseSSL {
		opts.SetTLSConfig(nil) // rely on URI tls=true / system roots; custom CA handled by deployment, not this client
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	return &Driver{client: client}, nil
}

func (d *Driver) Category() model.DatabaseCategory { return model.CategoryDocument }

func (d *Driver) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// ExecuteRaw accepts a JSON command of the shape
// {"database":"db","collection":"col","operation":"find","filter":{},"limit":50}.
func (d *Driver) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	start := time.Now()

	var cmd struct {
		Database   string          `json:"database"`
		Collection string          `json:"collection"`
		Operation  string          `json:"operation"`
		Filter     json.RawMessage `json:"filter"`
		Limit      int64           `json:"limit"`
	}
	if err := json.Unmarshal([]byte(query), &cmd); err != nil {
		return nil, dberrors.InvalidConfig("invalid JSON query: " + err.Error())
	}
	if cmd.Database == "" {
		cmd.Database = "test"
	}
	if cmd.Operation == "" {
		cmd.Operation = "find"
	}
	if cmd.Operation != "find" {
		return nil, dberrors.UnsupportedOperation("unsupported MongoDB operation: " + cmd.Operation)
	}
	if cmd.Collection == "" {
		return nil, dberrors.InvalidConfig("collection name required")
	}

	filter := bson.M{}
	if len(cmd.Filter) > 0 {
		if err := bson.UnmarshalExtJSON(cmd.Filter, false, &filter); err != nil {
			return nil, dberrors.InvalidConfig("invalid filter: " + err.Error())
		}
	}
	limit := cmd.Limit
	if limit == 0 {
		limit = 50
	}

	coll := d.client.Database(cmd.Database).Collection(cmd.Collection)
	cursor, err := coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, dberrors.Database("MongoDB find error", err)
	}
	defer cursor.Close(ctx)

	_, columns, rows, err := drainDocuments(ctx, cursor)
	if err != nil {
		return nil, err
	}

	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func drainDocuments(ctx context.Context, cursor *mongo.Cursor) ([]bson.M, []model.ColumnDef, [][]model.CellValue, error) {
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, nil, nil, dberrors.Database("MongoDB cursor error", err)
	}

	var allKeys []string
	seen := map[string]bool{}
	for _, doc := range docs {
		for k := range doc {
			if !seen[k] {
				seen[k] = true
				allKeys = append(allKeys, k)
			}
		}
	}

	columns := make([]model.ColumnDef, len(allKeys))
	for i, k := range allKeys {
		columns[i] = model.ColumnDef{Name: k, DataType: "mixed"}
	}

	rows := make([][]model.CellValue, len(docs))
	for i, doc := range docs {
		row := make([]model.CellValue, len(allKeys))
		for j, k := range allKeys {
			if v, ok := doc[k]; ok {
				row[j] = bsonValueToCell(v)
			} else {
				row[j] = model.Null()
			}
		}
		rows[i] = row
	}
	return docs, columns, rows, nil
}

func bsonValueToCell(v interface{}) model.CellValue {
	switch val := v.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.BoolValue(val)
	case int32:
		return model.IntValue(int64(val))
	case int64:
		return model.IntValue(val)
	case float64:
		return model.FloatValue(val)
	case string:
		return model.TextValue(val)
	case primitive.ObjectID:
		return model.TextValue(val.Hex())
	case primitive.DateTime:
		return model.TimestampValue(val.Time().UTC().Format(time.RFC3339Nano))
	case primitive.Binary:
		return model.BinaryValue(val.Data)
	case bson.M, bson.A:
		encoded, err := json.Marshal(val)
		if err != nil {
			return model.Null()
		}
		return model.JsonValue(string(encoded))
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return model.TextValue("")
		}
		return model.JsonValue(string(encoded))
	}
}

func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	names, err := d.client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return nil, dberrors.Database("failed to list databases", err)
	}
	var out []model.ContainerInfo
	for _, n := range names {
		if n == "admin" || n == "local" || n == "config" {
			continue
		}
		out = append(out, model.ContainerInfo{Name: n})
	}
	return out, nil
}

func (d *Driver) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	names, err := d.client.Database(container).ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, dberrors.Database("failed to list collections", err)
	}
	out := make([]model.ItemInfo, len(names))
	for i, n := range names {
		out[i] = model.ItemInfo{Name: n, Container: container, Kind: "collection"}
	}
	return out, nil
}

func (d *Driver) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	coll := d.client.Database(container).Collection(item)
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(100))
	if err != nil {
		return nil, dberrors.Database("MongoDB find error", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dberrors.Database("MongoDB cursor error", err)
	}

	typeOf := map[string]string{}
	for _, doc := range docs {
		for k, v := range doc {
			if _, ok := typeOf[k]; ok {
				continue
			}
			typeOf[k] = bsonTypeName(v)
		}
	}

	var names []string
	for k := range typeOf {
		names = append(names, k)
	}
	// "_id" sorts first and is treated as the primary key, matching the
	// original driver's field ordering.
	sortFieldNames(names)

	out := make([]model.FieldInfo, len(names))
	for i, name := range names {
		out[i] = model.FieldInfo{
			Name:            name,
			DataType:        typeOf[name],
			IsNullable:      name != "_id",
			IsPrimary:       name == "_id",
			OrdinalPosition: i + 1,
		}
	}
	return out, nil
}

func (d *Driver) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	start := time.Now()
	coll := d.client.Database(container).Collection(item)
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSkip(offset).SetLimit(limit))
	if err != nil {
		return nil, dberrors.Database("MongoDB find error", err)
	}
	defer cursor.Close(ctx)

	_, columns, rows, err := drainDocuments(ctx, cursor)
	if err != nil {
		return nil, err
	}
	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (d *Driver) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	count, err := d.client.Database(container).Collection(item).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, dberrors.Database("MongoDB count error", err)
	}
	return count, nil
}

func (d *Driver) InsertDocument(ctx context.Context, container, collection string, document map[string]interface{}) (string, error) {
	coll := d.client.Database(container).Collection(collection)
	result, err := coll.InsertOne(ctx, document)
	if err != nil {
		return "", dberrors.Database("MongoDB insert error", err)
	}
	if oid, ok := result.InsertedID.(interface{ Hex() string }); ok {
		return oid.Hex(), nil
	}
	encoded, _ := json.Marshal(result.InsertedID)
	return string(encoded), nil
}

func (d *Driver) UpdateDocument(ctx context.Context, container, collection string, filter, update map[string]interface{}) (int64, error) {
	coll := d.client.Database(container).Collection(collection)
	result, err := coll.UpdateMany(ctx, filter, bson.M{"$set": update})
	if err != nil {
		return 0, dberrors.Database("MongoDB update error", err)
	}
	return result.ModifiedCount, nil
}

func (d *Driver) DeleteDocuments(ctx context.Context, container, collection string, filter map[string]interface{}) (int64, error) {
	coll := d.client.Database(container).Collection(collection)
	result, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, dberrors.Database("MongoDB delete error", err)
	}
	return result.DeletedCount, nil
}

func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case float64:
		return "double"
	case string:
		return "string"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime:
		return "date"
	case primitive.Binary:
		return "binary"
	case bson.M:
		return "document"
	case bson.A:
		return "array"
	default:
		return "mixed"
	}
}

func sortFieldNames(names []string) {
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			less := names[j] < names[i]
			if names[j] == "_id" {
				less = true
			} else if names[i] == "_id" {
				less = false
			}
			if less {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
}
