// Command queryarkd is the brokerage engine's process entry point: it loads
// configuration, wires the three process-wide registries (§5 "Global
// state") together with the brokerage, secret resolver, and tunnel manager,
// then serves the command surface over the local bridge until signalled to
// stop, the same bootstrap shape as the teacher's cmd/gateway main.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/berbicanes/queryark/internal/bridge"
	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/command"
	"github.com/berbicanes/queryark/internal/config"
	"github.com/berbicanes/queryark/internal/configstore"
	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/exportimport"
	"github.com/berbicanes/queryark/internal/logging"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/secrets"
	"github.com/berbicanes/queryark/internal/secrets/keyringbackend"
	"github.com/berbicanes/queryark/internal/secrets/memorybackend"
	"github.com/berbicanes/queryark/internal/tunnel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging)
	logging.Default = logger

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		logger.Fatalf("failed to create data directory %s: %v", cfg.Server.DataDir, err)
	}

	var secretBackend secrets.Backend
	if cfg.Secrets.Backend == "memory" {
		secretBackend = memorybackend.New()
	} else {
		secretBackend = keyringbackend.New()
	}

	registry := driver.NewRegistry()
	cancels := driver.NewCancelRegistry()
	resolver := secrets.NewResolver(secretBackend, logger)
	tunnels := tunnel.NewManager(logger)
	store := configstore.New(cfg.Server.DataDir)
	broker := brokerage.New(cancels, logger)

	surface := command.New(registry, cancels, broker, resolver, tunnels, store, logger)

	server := bridge.NewServer(cfg.Server.SocketPath, logger)
	registerHandlers(server, surface)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("queryarkd listening on %s", cfg.Server.SocketPath)
		if err := server.Serve(ctx); err != nil {
			logger.Errorf("command bridge stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	time.Sleep(100 * time.Millisecond) // let in-flight responses flush
}

// decode unmarshals args into a fresh T, surfacing malformed input as
// Serialization rather than a generic JSON error (§7).
func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, dberrors.Serialization("malformed command arguments", err)
	}
	return v, nil
}

func registerHandlers(server *bridge.Server, s *command.Surface) {
	server.Register("connect_db", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[model.ConnectionConfig](args)
		if err != nil {
			return nil, err
		}
		return s.ConnectDB(ctx, req)
	})

	server.Register("disconnect_db", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.DisconnectDB(ctx, req.ID)
	})

	server.Register("test_connection", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[model.ConnectionConfig](args)
		if err != nil {
			return nil, err
		}
		return s.TestConnection(ctx, req), nil
	})

	server.Register("ping_connection", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.PingConnection(ctx, req.ID), nil
	})

	server.Register("execute_query", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID          string
			SQL         string
			TimeoutSecs int
			QueryID     string
			MaxRows     int
			MaxCellSize int
		}](args)
		if err != nil {
			return nil, err
		}
		return s.ExecuteQuery(ctx, req.ID, req.SQL, brokerage.ExecuteOptions{
			TimeoutSecs: req.TimeoutSecs,
			QueryID:     req.QueryID,
			MaxRows:     req.MaxRows,
			MaxCellSize: req.MaxCellSize,
		})
	})

	server.Register("execute_query_page", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID          string
			SQL         string
			Limit       int64
			Offset      int64
			TimeoutSecs int
			QueryID     string
			MaxCellSize int
			SortColumns []model.SortColumn
		}](args)
		if err != nil {
			return nil, err
		}
		return s.ExecuteQueryPage(ctx, req.ID, req.SQL, req.Limit, req.Offset, req.SortColumns, brokerage.ExecuteOptions{
			TimeoutSecs: req.TimeoutSecs,
			QueryID:     req.QueryID,
			MaxCellSize: req.MaxCellSize,
		})
	})

	server.Register("count_query_rows", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID  string
			SQL string
		}](args)
		if err != nil {
			return nil, err
		}
		return s.CountQueryRows(ctx, req.ID, req.SQL)
	})

	server.Register("fetch_full_cell", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID        string
			SQL       string
			Column    string
			RowOffset int64
		}](args)
		if err != nil {
			return nil, err
		}
		return s.FetchFullCell(ctx, req.ID, req.SQL, req.Column, req.RowOffset)
	})

	server.Register("cancel_query", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ QueryID string }](args)
		if err != nil {
			return nil, err
		}
		return s.CancelQuery(req.QueryID), nil
	})

	server.Register("get_database_category", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetDatabaseCategory(req.ID)
	})

	server.Register("get_containers", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetContainers(ctx, req.ID)
	})

	server.Register("get_items", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Container string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetItems(ctx, req.ID, req.Container)
	})

	server.Register("get_item_fields", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Container, Item string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetItemFields(ctx, req.ID, req.Container, req.Item)
	})

	server.Register("get_item_data", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Container, Item string
			Limit, Offset       int64
		}](args)
		if err != nil {
			return nil, err
		}
		return s.GetItemData(ctx, req.ID, req.Container, req.Item, req.Limit, req.Offset)
	})

	server.Register("get_item_count", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Container, Item string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetItemCount(ctx, req.ID, req.Container, req.Item)
	})

	server.Register("get_schemas", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetSchemas(ctx, req.ID)
	})

	server.Register("get_tables", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetTables(ctx, req.ID, req.Schema)
	})

	server.Register("get_columns", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetColumns(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("get_indexes", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetIndexes(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("get_foreign_keys", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetForeignKeys(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("get_table_data", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Schema, Table string
			Limit, Offset     int64
		}](args)
		if err != nil {
			return nil, err
		}
		return s.GetTableData(ctx, req.ID, req.Schema, req.Table, req.Limit, req.Offset)
	})

	server.Register("get_row_count", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetRowCount(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("get_table_stats", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetTableStats(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("get_routines", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetRoutines(ctx, req.ID, req.Schema)
	})

	server.Register("get_sequences", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetSequences(ctx, req.ID, req.Schema)
	})

	server.Register("get_enums", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetEnums(ctx, req.ID, req.Schema)
	})

	server.Register("update_cell", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Schema, Table, Column, Value string
			PKColumns, PKValues              []string
		}](args)
		if err != nil {
			return nil, err
		}
		return nil, s.UpdateCell(ctx, req.ID, req.Schema, req.Table, req.Column, req.Value, req.PKColumns, req.PKValues)
	})

	server.Register("insert_row", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Schema, Table string
			Columns, Values   []string
		}](args)
		if err != nil {
			return nil, err
		}
		return nil, s.InsertRow(ctx, req.ID, req.Schema, req.Table, req.Columns, req.Values)
	})

	server.Register("delete_rows", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Schema, Table string
			PKColumns         []string
			PKValuesList      [][]string
		}](args)
		if err != nil {
			return nil, err
		}
		return s.DeleteRows(ctx, req.ID, req.Schema, req.Table, req.PKColumns, req.PKValuesList)
	})

	server.Register("begin_transaction", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.BeginTransaction(ctx, req.ID)
	})

	server.Register("commit_transaction", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.CommitTransaction(ctx, req.ID)
	})

	server.Register("rollback_transaction", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.RollbackTransaction(ctx, req.ID)
	})

	server.Register("insert_document", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Container, Collection string
			Document                  map[string]interface{}
		}](args)
		if err != nil {
			return nil, err
		}
		return s.InsertDocument(ctx, req.ID, req.Container, req.Collection, req.Document)
	})

	server.Register("update_document", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Container, Collection string
			Filter, Update            map[string]interface{}
		}](args)
		if err != nil {
			return nil, err
		}
		return s.UpdateDocument(ctx, req.ID, req.Container, req.Collection, req.Filter, req.Update)
	})

	server.Register("delete_documents", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Container, Collection string
			Filter                    map[string]interface{}
		}](args)
		if err != nil {
			return nil, err
		}
		return s.DeleteDocuments(ctx, req.ID, req.Container, req.Collection, req.Filter)
	})

	server.Register("get_value", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Key string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetValue(ctx, req.ID, req.Key)
	})

	server.Register("set_value", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Key, Value string
			TTLSeconds     *int64
		}](args)
		if err != nil {
			return nil, err
		}
		return nil, s.SetValue(ctx, req.ID, req.Key, req.Value, req.TTLSeconds)
	})

	server.Register("delete_keys", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID   string
			Keys []string
		}](args)
		if err != nil {
			return nil, err
		}
		return s.DeleteKeys(ctx, req.ID, req.Keys)
	})

	server.Register("get_key_type", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Key string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetKeyType(ctx, req.ID, req.Key)
	})

	server.Register("scan_keys", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Pattern string
			Count       int64
		}](args)
		if err != nil {
			return nil, err
		}
		return s.ScanKeys(ctx, req.ID, req.Pattern, req.Count)
	})

	server.Register("get_labels", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetLabels(ctx, req.ID)
	})

	server.Register("get_relationship_types", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetRelationshipTypes(ctx, req.ID)
	})

	server.Register("get_node_properties", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Label string }](args)
		if err != nil {
			return nil, err
		}
		return s.GetNodeProperties(ctx, req.ID, req.Label)
	})

	server.Register("get_nodes", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Label     string
			Limit, Offset int64
		}](args)
		if err != nil {
			return nil, err
		}
		return s.GetNodes(ctx, req.ID, req.Label, req.Limit, req.Offset)
	})

	server.Register("store_keychain_password", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ConnectionID, Password string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.StoreKeychainPassword(req.ConnectionID, req.Password)
	})

	server.Register("get_keychain_password", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ConnectionID string }](args)
		if err != nil {
			return nil, err
		}
		password, ok := s.GetKeychainPassword(req.ConnectionID)
		return struct {
			Password string
			Found    bool
		}{password, ok}, nil
	})

	server.Register("delete_keychain_password", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ConnectionID string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.DeleteKeychainPassword(req.ConnectionID)
	})

	server.Register("check_keychain_available", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return s.CheckKeychainAvailable(), nil
	})

	server.Register("export_to_csv", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table, Path string }](args)
		if err != nil {
			return nil, err
		}
		return s.ExportToCSV(ctx, req.ID, req.Schema, req.Table, req.Path)
	})

	server.Register("export_to_json", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table, Path string }](args)
		if err != nil {
			return nil, err
		}
		return s.ExportToJSON(ctx, req.ID, req.Schema, req.Table, req.Path)
	})

	server.Register("export_to_sql", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table, Path string }](args)
		if err != nil {
			return nil, err
		}
		return s.ExportToSQL(ctx, req.ID, req.Schema, req.Table, req.Path)
	})

	server.Register("export_ddl", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ ID, Schema, Table string }](args)
		if err != nil {
			return nil, err
		}
		return s.ExportDDL(ctx, req.ID, req.Schema, req.Table)
	})

	server.Register("import_csv", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID, Schema, Table, Path string
			HasHeader               bool
		}](args)
		if err != nil {
			return nil, err
		}
		return s.ImportCSV(ctx, req.ID, req.Schema, req.Table, req.Path, req.HasHeader)
	})

	server.Register("dump_database", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct {
			ID      string
			Schemas []string
			Path    string
		}](args)
		if err != nil {
			return nil, err
		}
		var progress []exportimport.DumpProgress
		err = s.DumpDatabase(ctx, req.ID, req.Schemas, req.Path, func(p exportimport.DumpProgress) {
			progress = append(progress, p)
		})
		if err != nil {
			return nil, err
		}
		return progress, nil
	})

	server.Register("backup_configs", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return s.BackupConfigs()
	})

	server.Register("list_backups", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return s.ListBackups()
	})

	server.Register("restore_backup", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ Name string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.RestoreBackup(req.Name)
	})

	server.Register("delete_backup", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		req, err := decode[struct{ Name string }](args)
		if err != nil {
			return nil, err
		}
		return nil, s.DeleteBackup(req.Name)
	})
}
