// Package dynamodb implements the Document driver for DynamoDB, backed by
// aws-sdk-go-v2's dynamodb service client.
package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/model"
)

type Driver struct {
	client *dynamodb.Client
}

var _ driver.Document = (*Driver)(nil)

func Connect(ctx context.Context, cfg *model.ConnectionConfig) (*Driver, error) {
	region := cfg.AWSRegion
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.CloudAuth != nil && cfg.CloudAuth.Kind == model.CloudAuthAWS {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.CloudAuth.AccessKey, cfg.CloudAuth.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), region, err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return nil, dberrors.ConnectionFailed(string(cfg.DBType), region, err)
	}
	return &Driver{client: client}, nil
}

func (d *Driver) Category() model.DatabaseCategory { return model.CategoryDocument }

func (d *Driver) Close(ctx context.Context) error { return nil }

func (d *Driver) ExecuteRaw(ctx context.Context, query string) (*model.QueryResponse, error) {
	start := time.Now()

	var cmd struct {
		Table string `json:"table"`
	}
	if err := json.Unmarshal([]byte(query), &cmd); err != nil {
		return nil, dberrors.InvalidConfig("invalid JSON query: " + err.Error())
	}
	if cmd.Table == "" {
		return nil, dberrors.InvalidConfig("'table' field required")
	}

	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(cmd.Table),
		Limit:     aws.Int32(50),
	})
	if err != nil {
		return nil, dberrors.Database("DynamoDB scan error", err)
	}

	columns, rows := itemsToColumnsAndRows(result.Items)
	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func itemsToColumnsAndRows(items []map[string]types.AttributeValue) ([]model.ColumnDef, [][]model.CellValue) {
	var allKeys []string
	seen := map[string]bool{}
	for _, item := range items {
		for k := range item {
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

	rows := make([][]model.CellValue, len(items))
	for i, item := range items {
		row := make([]model.CellValue, len(allKeys))
		for j, k := range allKeys {
			if v, ok := item[k]; ok {
				row[j] = attributeToCell(v)
			} else {
				row[j] = model.Null()
			}
		}
		rows[i] = row
	}
	return columns, rows
}

func attributeToCell(v types.AttributeValue) model.CellValue {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return model.TextValue(av.Value)
	case *types.AttributeValueMemberN:
		if i, err := strconv.ParseInt(av.Value, 10, 64); err == nil {
			return model.IntValue(i)
		}
		if f, err := strconv.ParseFloat(av.Value, 64); err == nil {
			return model.FloatValue(f)
		}
		return model.TextValue(av.Value)
	case *types.AttributeValueMemberBOOL:
		return model.BoolValue(av.Value)
	case *types.AttributeValueMemberB:
		return model.BinaryValue(av.Value)
	case *types.AttributeValueMemberNULL:
		if av.Value {
			return model.Null()
		}
		return model.BoolValue(false)
	case *types.AttributeValueMemberL:
		items := make([]interface{}, len(av.Value))
		for i, item := range av.Value {
			items[i] = attributeToJSON(item)
		}
		encoded, _ := json.Marshal(items)
		return model.JsonValue(string(encoded))
	case *types.AttributeValueMemberM:
		obj := make(map[string]interface{}, len(av.Value))
		for k, item := range av.Value {
			obj[k] = attributeToJSON(item)
		}
		encoded, _ := json.Marshal(obj)
		return model.JsonValue(string(encoded))
	case *types.AttributeValueMemberSS:
		encoded, _ := json.Marshal(av.Value)
		return model.JsonValue(string(encoded))
	case *types.AttributeValueMemberNS:
		encoded, _ := json.Marshal(av.Value)
		return model.JsonValue(string(encoded))
	default:
		return model.TextValue(fmt.Sprintf("%v", v))
	}
}

func attributeToJSON(v types.AttributeValue) interface{} {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return av.Value
	case *types.AttributeValueMemberN:
		if i, err := strconv.ParseInt(av.Value, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(av.Value, 64); err == nil {
			return f
		}
		return av.Value
	case *types.AttributeValueMemberBOOL:
		return av.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberL:
		items := make([]interface{}, len(av.Value))
		for i, item := range av.Value {
			items[i] = attributeToJSON(item)
		}
		return items
	case *types.AttributeValueMemberM:
		obj := make(map[string]interface{}, len(av.Value))
		for k, item := range av.Value {
			obj[k] = attributeToJSON(item)
		}
		return obj
	default:
		return fmt.Sprintf("%v", v)
	}
}

func jsonToAttribute(v interface{}) types.AttributeValue {
	switch val := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: val}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(val, 'f', -1, 64)}
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(val)}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(val, 10)}
	case string:
		return &types.AttributeValueMemberS{Value: val}
	case []interface{}:
		items := make([]types.AttributeValue, len(val))
		for i, item := range val {
			items[i] = jsonToAttribute(item)
		}
		return &types.AttributeValueMemberL{Value: items}
	case map[string]interface{}:
		m := make(map[string]types.AttributeValue, len(val))
		for k, item := range val {
			m[k] = jsonToAttribute(item)
		}
		return &types.AttributeValueMemberM{Value: m}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

func mapToAttributes(m map[string]interface{}) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		out[k] = jsonToAttribute(v)
	}
	return out
}

// GetContainers returns a single synthetic container, since DynamoDB has no
// database/schema concept — tables live directly at the region level.
func (d *Driver) GetContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	return []model.ContainerInfo{{Name: "default", ContainerType: "region"}}, nil
}

func (d *Driver) GetItems(ctx context.Context, container string) ([]model.ItemInfo, error) {
	var tableNames []string
	var exclusiveStart *string
	for {
		input := &dynamodb.ListTablesInput{Limit: aws.Int32(100)}
		if exclusiveStart != nil {
			input.ExclusiveStartTableName = exclusiveStart
		}
		result, err := d.client.ListTables(ctx, input)
		if err != nil {
			return nil, dberrors.Database("DynamoDB list tables error", err)
		}
		tableNames = append(tableNames, result.TableNames...)
		exclusiveStart = result.LastEvaluatedTableName
		if exclusiveStart == nil {
			break
		}
	}

	out := make([]model.ItemInfo, len(tableNames))
	for i, name := range tableNames {
		out[i] = model.ItemInfo{Name: name, Container: "default", Kind: "table"}
	}
	return out, nil
}

func (d *Driver) GetItemFields(ctx context.Context, container, item string) ([]model.FieldInfo, error) {
	result, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(item)})
	if err != nil {
		return nil, dberrors.Database("DynamoDB describe table error", err)
	}
	if result.Table == nil {
		return nil, dberrors.Database("table not found", nil)
	}

	attrTypes := map[string]string{}
	for _, a := range result.Table.AttributeDefinitions {
		attrTypes[aws.ToString(a.AttributeName)] = string(a.AttributeType)
	}

	var fields []model.FieldInfo
	existing := map[string]bool{}
	for idx, key := range result.Table.KeySchema {
		name := aws.ToString(key.AttributeName)
		dataType := attrTypes[name]
		if dataType == "" {
			dataType = "S"
		}
		fields = append(fields, model.FieldInfo{
			Name:            name,
			DataType:        dataType,
			IsNullable:      false,
			IsPrimary:       true,
			OrdinalPosition: idx + 1,
		})
		existing[name] = true
	}

	scanResult, scanErr := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(item),
		Limit:     aws.Int32(10),
	})
	if scanErr == nil {
		extraIdx := len(fields)
		for _, scannedItem := range scanResult.Items {
			for key := range scannedItem {
				if existing[key] {
					continue
				}
				existing[key] = true
				extraIdx++
				fields = append(fields, model.FieldInfo{
					Name:            key,
					DataType:        "mixed",
					IsNullable:      true,
					IsPrimary:       false,
					OrdinalPosition: extraIdx,
				})
			}
		}
	}

	return fields, nil
}

func (d *Driver) GetItemData(ctx context.Context, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	start := time.Now()
	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(item),
		Limit:     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, dberrors.Database("DynamoDB scan error", err)
	}

	columns, rows := itemsToColumnsAndRows(result.Items)
	return &model.QueryResponse{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (d *Driver) GetItemCount(ctx context.Context, container, item string) (int64, error) {
	result, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(item)})
	if err != nil {
		return 0, dberrors.Database("DynamoDB describe error", err)
	}
	if result.Table == nil || result.Table.ItemCount == nil {
		return 0, nil
	}
	return *result.Table.ItemCount, nil
}

func (d *Driver) InsertDocument(ctx context.Context, container, collection string, document map[string]interface{}) (string, error) {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(collection),
		Item:      mapToAttributes(document),
	})
	if err != nil {
		return "", dberrors.Database("DynamoDB put item error", err)
	}
	return "inserted", nil
}

func (d *Driver) UpdateDocument(ctx context.Context, container, collection string, filter, update map[string]interface{}) (int64, error) {
	key := mapToAttributes(filter)

	var updateExprParts []string
	exprAttrValues := map[string]types.AttributeValue{}
	exprAttrNames := map[string]string{}
	idx := 0
	for k, v := range update {
		namePlaceholder := fmt.Sprintf("#attr%d", idx)
		valuePlaceholder := fmt.Sprintf(":val%d", idx)
		updateExprParts = append(updateExprParts, fmt.Sprintf("%s = %s", namePlaceholder, valuePlaceholder))
		exprAttrNames[namePlaceholder] = k
		exprAttrValues[valuePlaceholder] = jsonToAttribute(v)
		idx++
	}

	updateExpr := "SET "
	for i, part := range updateExprParts {
		if i > 0 {
			updateExpr += ", "
		}
		updateExpr += part
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(collection),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
	})
	if err != nil {
		return 0, dberrors.Database("DynamoDB update error", err)
	}
	return 1, nil
}

func (d *Driver) DeleteDocuments(ctx context.Context, container, collection string, filter map[string]interface{}) (int64, error) {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(collection),
		Key:       mapToAttributes(filter),
	})
	if err != nil {
		return 0, dberrors.Database("DynamoDB delete error", err)
	}
	return 1, nil
}
