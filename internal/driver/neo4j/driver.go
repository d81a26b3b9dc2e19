// Package neo4j implements the Graph driver for Neo4j, backed by
// neo4j/neo4j-go-driver/v5.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	neo4jgo "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	driver neo4jgo.DriverWithContext
}

var _ driver.Graph = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	uri := cfg.URL()
	if uri == "" {
		uri = fmt.Sprintf("bolt://%s:%d", cfg.HostOrDefault(), cfg.PortOrDefault())
	}

	drv, err := neo4jgo.NewDriverWithContext(uri, neo4jgo.BasicAuth(cfg.UsernameOrDefault(), cfg.PasswordOrDefault(), ""))
	if err != nil {
		return nil, dberrors.Database("failed to build Neo4j driver", err)
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), cfg.HostOrDefault(), err)
	}
	return &Driver{driver: drv}, nil
}

func (d *Driver) Category() model.DatabaseCategory { return model.CategoryGraph }

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Driver) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	start := time.Now()
	session := d.driver.NewSession(ctx, neo4jgo.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, strings.TrimSpace(query), nil)
	if err != nil {
		return nil, dberrors.Database("Neo4j query error", err)
	}

	var columnKeys []string
	var columns []model.ColumnDef
	columnsSet := false
	var rows [][]model.CellValue

	for result.Next(ctx) {
		record := result.Record()

		if !columnsSet {
			columnKeys = append([]string(nil), record.Keys...)
			sort.Strings(columnKeys)
			columns = make([]model.ColumnDef, len(columnKeys))
			for i, k := range columnKeys {
				columns[i] = model.ColumnDef{Name: k, DataType: "mixed"}
			}
			columnsSet = true
		}

		cells := make([]model.CellValue, len(columnKeys))
		for i, k := range columnKeys {
			v, ok := record.Get(k)
			if !ok {
				cells[i] = model.Null()
				continue
			}
			cells[i] = boltValueToCell(v)
		}
		rows = append(rows, cells)
	}
	if err := result.Err(); err != nil {
		return nil, dberrors.Database("Neo4j query error", err)
	}

	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func boltValueToCell(v interface{}) model.CellValue {
	switch val := v.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.BoolValue(val)
	case int64:
		return model.IntValue(val)
	case float64:
		return model.FloatValue(val)
	case string:
		return model.TextValue(val)
	case time.Time:
		return model.TimestampValue(val.UTC().Format(time.RFC3339Nano))
	case []interface{}:
		encoded, err := json.Marshal(boltSliceToJSON(val))
		if err != nil {
			return model.Null()
		}
		return model.JsonValue(string(encoded))
	case map[string]interface{}:
		encoded, err := json.Marshal(boltMapToJSON(val))
		if err != nil {
			return model.Null()
		}
		return model.JsonValue(string(encoded))
	case dbtype.Node:
		obj := map[string]interface{}{"_id": val.Id, "_labels": val.Labels}
		for k, pv := range val.Props {
			obj[k] = boltScalarToJSON(pv)
		}
		encoded, _ := json.Marshal(obj)
		return model.JsonValue(string(encoded))
	case dbtype.Relationship:
		obj := map[string]interface{}{
			"_id": val.Id, "_type": val.Type, "_start": val.StartId, "_end": val.EndId,
		}
		for k, pv := range val.Props {
			obj[k] = boltScalarToJSON(pv)
		}
		encoded, _ := json.Marshal(obj)
		return model.JsonValue(string(encoded))
	default:
		return model.TextValue(fmt.Sprintf("%v", val))
	}
}

func boltSliceToJSON(items []interface{}) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = boltScalarToJSON(item)
	}
	return out
}

func boltMapToJSON(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = boltScalarToJSON(v)
	}
	return out
}

func boltScalarToJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		return boltSliceToJSON(val)
	case map[string]interface{}:
		return boltMapToJSON(val)
	default:
		return val
	}
}

func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	return []model.ContainerInfo{{Name: "neo4j", ContainerType: "database"}}, nil
}

func (d *Driver) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	labels, err := d.GetLabels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ItemInfo, len(labels))
	for i, name := range labels {
		out[i] = model.ItemInfo{Name: name, Container: "neo4j", Kind: "label"}
	}
	return out, nil
}

func (d *Driver) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	props, err := d.GetNodeProperties(ctx, item)
	if err != nil {
		return nil, err
	}
	out := make([]model.FieldInfo, len(props))
	for i, name := range props {
		out[i] = model.FieldInfo{Name: name, DataType: "mixed", IsNullable: true, OrdinalPosition: i + 1}
	}
	return out, nil
}

func (d *Driver) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	return d.GetNodes(ctx, item, limit, offset)
}

func (d *Driver) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	query := fmt.Sprintf("MATCH (n:`%s`) RETURN count(n) as count", escapeBacktick(item))
	resp, err := d.ExecuteRaw(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(resp.Rows) > 0 && len(resp.Rows[0]) > 0 && resp.Rows[0][0].Kind == model.KindInt {
		return resp.Rows[0][0].Int, nil
	}
	return 0, nil
}

func (d *Driver) GetLabels(ctx context.Context) ([]string, error) {
	resp, err := d.ExecuteRaw(ctx, "CALL db.labels()")
	if err != nil {
		return nil, err
	}
	return firstColumnText(resp), nil
}

func (d *Driver) GetRelationshipTypes(ctx context.Context) ([]string, error) {
	resp, err := d.ExecuteRaw(ctx, "CALL db.relationshipTypes()")
	if err != nil {
		return nil, err
	}
	return firstColumnText(resp), nil
}

func (d *Driver) GetNodeProperties(ctx context.Context, label string) ([]string, error) {
	query := fmt.Sprintf(
		"MATCH (n:`%s`) WITH keys(n) AS keys UNWIND keys AS key RETURN DISTINCT key ORDER BY key LIMIT 100",
		escapeBacktick(label))
	resp, err := d.ExecuteRaw(ctx, query)
	if err != nil {
		return nil, err
	}
	return firstColumnText(resp), nil
}

func (d *Driver) GetNodes(ctx context.Context, label string, limit, offset int64) (*model.QueryResponse, error) {
	query := fmt.Sprintf("MATCH (n:`%s`) RETURN n SKIP %d LIMIT %d", escapeBacktick(label), offset, limit)
	return d.ExecuteRaw(ctx, query)
}

func firstColumnText(resp *model.QueryResponse) []string {
	var out []string
	for _, row := range resp.Rows {
		if len(row) > 0 && row[0].Kind == model.KindText {
			out = append(out, row[0].Text)
		}
	}
	return out
}

func escapeBacktick(s string) string {
	return strings.ReplaceAll(s, "`", "``")
}
