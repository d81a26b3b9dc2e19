// Package command exposes every operation named in §6 "Command surface" as
// typed methods on a Surface, the single entry point the local bridge
// dispatches requests through. It wires together the connection registry,
// cancellation registry, secret resolver, tunnel manager, brokerage, and
// config store.
package command

import (
	"context"
	"sync"

	"github.com/berbicanes/queryark/internal/brokerage"
	"github.com/berbicanes/queryark/internal/configstore"
	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/driver/factory"
	"github.com/berbicanes/queryark/internal/exportimport"
	"github.com/berbicanes/queryark/internal/logging"
	"github.com/berbicanes/queryark/internal/model"
	"github.com/berbicanes/queryark/internal/secrets"
	"github.com/berbicanes/queryark/internal/tunnel"
	"github.com/google/uuid"
)

// Surface is the command dispatch target the bridge hands every request to.
type Surface struct {
	registry  *driver.Registry
	cancels   *driver.CancelRegistry
	brokerage *brokerage.Brokerage
	secrets   *secrets.Resolver
	tunnels   *tunnel.Manager
	store     *configstore.Store
	dbTypesMu sync.RWMutex
	dbTypes   map[string]model.DatabaseType // connection_id -> dialect, for pagination hints
	log       *logging.Logger
}

func New(registry *driver.Registry, cancels *driver.CancelRegistry, broker *brokerage.Brokerage, secretResolver *secrets.Resolver, tunnels *tunnel.Manager, store *configstore.Store, log *logging.Logger) *Surface {
	if log == nil {
		log = logging.Default
	}
	return &Surface{
		registry:  registry,
		cancels:   cancels,
		brokerage: broker,
		secrets:   secretResolver,
		tunnels:   tunnels,
		store:     store,
		dbTypes:   make(map[string]model.DatabaseType),
		log:       log,
	}
}

// ConnectDB resolves SSH tunneling and secrets, dials the engine, and
// registers the resulting handle under cfg.ID, or under a fresh connection
// id when cfg.ID is empty.
func (s *Surface) ConnectDB(ctx context.Context, cfg model.ConnectionConfig) (string, error) {
	resolved, err := s.resolveSecrets(&cfg)
	if err != nil {
		return "", err
	}

	tunneled, err := s.tunnels.EnsureTunnel(resolved)
	if err != nil {
		return "", err
	}

	handle, err := factory.Connect(ctx, tunneled)
	if err != nil {
		return "", err
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	s.registry.Add(cfg.ID, handle)
	s.dbTypesMu.Lock()
	s.dbTypes[cfg.ID] = cfg.DBType
	s.dbTypesMu.Unlock()
	return cfg.ID, nil
}

// resolveSecrets fills in a blank password from the keychain when the
// caller opted into UseKeychain, leaving an explicit password untouched.
func (s *Surface) resolveSecrets(cfg *model.ConnectionConfig) (*model.ConnectionConfig, error) {
	clone := *cfg
	if clone.UseKeychain && clone.Password == "" {
		if password, ok := s.secrets.GetPassword(clone.ID); ok {
			clone.Password = password
		}
	}
	if clone.UseKeychain && clone.SSH.Enabled && clone.SSH.Password == "" {
		if password, ok := s.secrets.Get(clone.ID, secrets.KeySSHPassword); ok {
			clone.SSH.Password = password
		}
	}
	return &clone, nil
}

// DisconnectDB releases the driver handle and tears down its tunnel, if any.
func (s *Surface) DisconnectDB(ctx context.Context, id string) error {
	handle, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if err := handle.Base().Close(ctx); err != nil {
		s.log.WithConnection(id).Warnf("close failed: %v", err)
	}
	s.tunnels.RemoveTunnel(id)
	s.dbTypesMu.Lock()
	delete(s.dbTypes, id)
	s.dbTypesMu.Unlock()
	return s.registry.Remove(id)
}

// TestConnection dials, probes, and disconnects, swallowing any failure
// into false per §7's propagation policy.
func (s *Surface) TestConnection(ctx context.Context, cfg model.ConnectionConfig) bool {
	resolved, err := s.resolveSecrets(&cfg)
	if err != nil {
		return false
	}
	tunneled, err := s.tunnels.EnsureTunnel(resolved)
	if err != nil {
		return false
	}
	handle, err := factory.Connect(ctx, tunneled)
	if err != nil {
		return false
	}
	defer handle.Base().Close(ctx)
	return true
}

// PingConnection re-exercises a live connection's base path, swallowing
// failures into false.
func (s *Surface) PingConnection(ctx context.Context, id string) bool {
	handle, err := s.registry.Get(id)
	if err != nil {
		return false
	}
	_, err = handle.Base().GetContainers(ctx)
	return err == nil
}

func (s *Surface) dbType(id string) model.DatabaseType {
	s.dbTypesMu.RLock()
	defer s.dbTypesMu.RUnlock()
	return s.dbTypes[id]
}

// ExecuteQuery runs sql through the brokerage envelope.
func (s *Surface) ExecuteQuery(ctx context.Context, id, sqlText string, opts brokerage.ExecuteOptions) (*model.QueryResponse, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if opts.QueryID != "" {
		s.log.WithQuery(id, opts.QueryID).Debug("executing cancellable query")
	}
	return s.brokerage.ExecuteQuery(ctx, handle.Base(), sqlText, opts)
}

// ExecuteQueryPage runs a paginated rewrite of sql through the brokerage
// envelope.
func (s *Surface) ExecuteQueryPage(ctx context.Context, id, sqlText string, limit, offset int64, sortColumns []model.SortColumn, opts brokerage.ExecuteOptions) (*model.QueryResponse, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if opts.QueryID != "" {
		s.log.WithQuery(id, opts.QueryID).Debug("executing cancellable page query")
	}
	return s.brokerage.ExecuteQueryPage(ctx, handle.Base(), s.dbType(id), sqlText, limit, offset, sortColumns, opts)
}

// CountQueryRows wraps sql in a COUNT(*) query.
func (s *Surface) CountQueryRows(ctx context.Context, id, sqlText string) (int64, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return 0, err
	}
	return s.brokerage.CountQueryRows(ctx, handle.Base(), sqlText)
}

// FetchFullCell retrieves the untruncated value behind a Large* cell.
func (s *Surface) FetchFullCell(ctx context.Context, id, sqlText, column string, rowOffset int64) (model.CellValue, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return model.CellValue{}, err
	}
	return s.brokerage.FetchFullCell(ctx, handle.Base(), s.dbType(id), sqlText, column, rowOffset)
}

// CancelQuery fires the cancel signal for queryID, if still in flight.
func (s *Surface) CancelQuery(queryID string) bool {
	return s.brokerage.CancelQuery(queryID)
}

// GetDatabaseCategory reports the capability family for a live connection.
func (s *Surface) GetDatabaseCategory(id string) (model.DatabaseCategory, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return "", err
	}
	return handle.Base().Category(), nil
}

func (s *Surface) GetContainers(ctx context.Context, id string) ([]model.ContainerInfo, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.Base().GetContainers(ctx)
}

func (s *Surface) GetItems(ctx context.Context, id, container string) ([]model.ItemInfo, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.Base().GetItems(ctx, container)
}

func (s *Surface) GetItemFields(ctx context.Context, id, container, item string) ([]model.FieldInfo, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.Base().GetItemFields(ctx, container, item)
}

func (s *Surface) GetItemData(ctx context.Context, id, container, item string, limit, offset int64) (*model.QueryResponse, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.Base().GetItemData(ctx, container, item, limit, offset)
}

func (s *Surface) GetItemCount(ctx context.Context, id, container, item string) (int64, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return 0, err
	}
	return handle.Base().GetItemCount(ctx, container, item)
}

func (s *Surface) sqlHandle(id string) (driver.Sql, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.AsSql()
}

func (s *Surface) GetSchemas(ctx context.Context, id string) ([]model.SchemaInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetSchemas(ctx)
}

func (s *Surface) GetTables(ctx context.Context, id, schema string) ([]model.TableInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetTables(ctx, schema)
}

func (s *Surface) GetColumns(ctx context.Context, id, schema, table string) ([]model.ColumnInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetColumns(ctx, schema, table)
}

func (s *Surface) GetIndexes(ctx context.Context, id, schema, table string) ([]model.IndexInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetIndexes(ctx, schema, table)
}

func (s *Surface) GetForeignKeys(ctx context.Context, id, schema, table string) ([]model.ForeignKeyInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetForeignKeys(ctx, schema, table)
}

func (s *Surface) GetTableData(ctx context.Context, id, schema, table string, limit, offset int64) (*model.QueryResponse, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetTableData(ctx, schema, table, limit, offset)
}

func (s *Surface) GetRowCount(ctx context.Context, id, schema, table string) (int64, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return 0, err
	}
	return sql.GetRowCount(ctx, schema, table)
}

func (s *Surface) GetTableStats(ctx context.Context, id, schema, table string) (model.TableStats, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return model.TableStats{}, err
	}
	return sql.GetTableStats(ctx, schema, table)
}

func (s *Surface) GetRoutines(ctx context.Context, id, schema string) ([]model.RoutineInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetRoutines(ctx, schema)
}

func (s *Surface) GetSequences(ctx context.Context, id, schema string) ([]model.SequenceInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetSequences(ctx, schema)
}

func (s *Surface) GetEnums(ctx context.Context, id, schema string) ([]model.EnumInfo, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return sql.GetEnums(ctx, schema)
}

func (s *Surface) UpdateCell(ctx context.Context, id, schema, table, column, value string, pkColumns, pkValues []string) error {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return err
	}
	return sql.UpdateCell(ctx, schema, table, column, value, pkColumns, pkValues)
}

func (s *Surface) InsertRow(ctx context.Context, id, schema, table string, columns, values []string) error {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return err
	}
	if len(columns) != len(values) {
		return dberrors.InvalidConfig("columns and values must have the same length")
	}
	return sql.InsertRow(ctx, schema, table, columns, values)
}

func (s *Surface) DeleteRows(ctx context.Context, id, schema, table string, pkColumns []string, pkValuesList [][]string) (int64, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return 0, err
	}
	return sql.DeleteRows(ctx, schema, table, pkColumns, pkValuesList)
}

func (s *Surface) BeginTransaction(ctx context.Context, id string) error {
	handle, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return handle.BeginTransaction(ctx)
}

func (s *Surface) CommitTransaction(ctx context.Context, id string) error {
	handle, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return handle.CommitTransaction(ctx)
}

func (s *Surface) RollbackTransaction(ctx context.Context, id string) error {
	handle, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return handle.RollbackTransaction(ctx)
}

func (s *Surface) documentHandle(id string) (driver.Document, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.AsDocument()
}

func (s *Surface) InsertDocument(ctx context.Context, id, container, collection string, document map[string]interface{}) (string, error) {
	doc, err := s.documentHandle(id)
	if err != nil {
		return "", err
	}
	return doc.InsertDocument(ctx, container, collection, document)
}

func (s *Surface) UpdateDocument(ctx context.Context, id, container, collection string, filter, update map[string]interface{}) (int64, error) {
	doc, err := s.documentHandle(id)
	if err != nil {
		return 0, err
	}
	return doc.UpdateDocument(ctx, container, collection, filter, update)
}

func (s *Surface) DeleteDocuments(ctx context.Context, id, container, collection string, filter map[string]interface{}) (int64, error) {
	doc, err := s.documentHandle(id)
	if err != nil {
		return 0, err
	}
	return doc.DeleteDocuments(ctx, container, collection, filter)
}

func (s *Surface) keyValueHandle(id string) (driver.KeyValue, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.AsKeyValue()
}

func (s *Surface) GetValue(ctx context.Context, id, key string) (interface{}, error) {
	kv, err := s.keyValueHandle(id)
	if err != nil {
		return nil, err
	}
	return kv.GetValue(ctx, key)
}

func (s *Surface) SetValue(ctx context.Context, id, key, value string, ttlSeconds *int64) error {
	kv, err := s.keyValueHandle(id)
	if err != nil {
		return err
	}
	return kv.SetValue(ctx, key, value, ttlSeconds)
}

func (s *Surface) DeleteKeys(ctx context.Context, id string, keys []string) (int64, error) {
	kv, err := s.keyValueHandle(id)
	if err != nil {
		return 0, err
	}
	return kv.DeleteKeys(ctx, keys)
}

func (s *Surface) GetKeyType(ctx context.Context, id, key string) (string, error) {
	kv, err := s.keyValueHandle(id)
	if err != nil {
		return "", err
	}
	return kv.GetKeyType(ctx, key)
}

func (s *Surface) ScanKeys(ctx context.Context, id, pattern string, count int64) ([]string, error) {
	kv, err := s.keyValueHandle(id)
	if err != nil {
		return nil, err
	}
	return kv.ScanKeys(ctx, pattern, count)
}

func (s *Surface) graphHandle(id string) (driver.Graph, error) {
	handle, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return handle.AsGraph()
}

func (s *Surface) GetLabels(ctx context.Context, id string) ([]string, error) {
	g, err := s.graphHandle(id)
	if err != nil {
		return nil, err
	}
	return g.GetLabels(ctx)
}

func (s *Surface) GetRelationshipTypes(ctx context.Context, id string) ([]string, error) {
	g, err := s.graphHandle(id)
	if err != nil {
		return nil, err
	}
	return g.GetRelationshipTypes(ctx)
}

func (s *Surface) GetNodeProperties(ctx context.Context, id, label string) ([]string, error) {
	g, err := s.graphHandle(id)
	if err != nil {
		return nil, err
	}
	return g.GetNodeProperties(ctx, label)
}

func (s *Surface) GetNodes(ctx context.Context, id, label string, limit, offset int64) (*model.QueryResponse, error) {
	g, err := s.graphHandle(id)
	if err != nil {
		return nil, err
	}
	return g.GetNodes(ctx, label, limit, offset)
}

func (s *Surface) StoreKeychainPassword(connectionID, password string) error {
	return s.secrets.StorePassword(connectionID, password)
}

func (s *Surface) GetKeychainPassword(connectionID string) (string, bool) {
	return s.secrets.GetPassword(connectionID)
}

func (s *Surface) DeleteKeychainPassword(connectionID string) error {
	return s.secrets.DeletePassword(connectionID)
}

func (s *Surface) CheckKeychainAvailable() bool {
	return s.secrets.Available()
}

func (s *Surface) BackupConfigs() (string, error) {
	return s.store.BackupConfigs()
}

func (s *Surface) ListBackups() ([]string, error) {
	return s.store.ListBackups()
}

func (s *Surface) RestoreBackup(name string) error {
	return s.store.RestoreBackup(name)
}

func (s *Surface) DeleteBackup(name string) error {
	return s.store.DeleteBackup(name)
}

// ExportToCSV streams schema.table to path as CSV and returns the file size.
func (s *Surface) ExportToCSV(ctx context.Context, id, schema, table, path string) (int64, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return 0, err
	}
	return exportimport.ExportCSV(ctx, sql, schema, table, path)
}

// ExportToJSON streams schema.table to path as a pretty-printed JSON array.
func (s *Surface) ExportToJSON(ctx context.Context, id, schema, table, path string) (int64, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return 0, err
	}
	return exportimport.ExportJSON(ctx, sql, schema, table, path)
}

// ExportToSQL streams schema.table to path as INSERT statements.
func (s *Surface) ExportToSQL(ctx context.Context, id, schema, table, path string) (int64, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return 0, err
	}
	return exportimport.ExportSQL(ctx, sql, schema, table, path)
}

// ExportDDL generates a CREATE TABLE (plus index) statement for schema.table
// from its live column/index/foreign-key metadata.
func (s *Surface) ExportDDL(ctx context.Context, id, schema, table string) (string, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return "", err
	}
	columns, err := sql.GetColumns(ctx, schema, table)
	if err != nil {
		return "", err
	}
	indexes, err := sql.GetIndexes(ctx, schema, table)
	if err != nil {
		return "", err
	}
	foreignKeys, err := sql.GetForeignKeys(ctx, schema, table)
	if err != nil {
		return "", err
	}
	return exportimport.GenerateDDL(schema, table, columns, indexes, foreignKeys), nil
}

// ImportCSV reads path into schema.table via sql.InsertRow, one row at a
// time, tallying successes and failures rather than aborting the batch.
func (s *Surface) ImportCSV(ctx context.Context, id, schema, table, path string, hasHeader bool) (*exportimport.ImportResult, error) {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return nil, err
	}
	return exportimport.ImportCSV(ctx, sql, schema, table, path, hasHeader)
}

// DumpDatabase writes a schema-then-data SQL dump of every table in schemas
// to path, invoking onProgress once per completed table's data phase (the
// bridge relays this as the dump-progress event stream).
func (s *Surface) DumpDatabase(ctx context.Context, id string, schemas []string, path string, onProgress func(exportimport.DumpProgress)) error {
	sql, err := s.sqlHandle(id)
	if err != nil {
		return err
	}

	var targets []exportimport.DumpTarget
	for _, schema := range schemas {
		tables, err := sql.GetTables(ctx, schema)
		if err != nil {
			return err
		}
		for _, t := range tables {
			columns, err := sql.GetColumns(ctx, schema, t.Name)
			if err != nil {
				return err
			}
			indexes, err := sql.GetIndexes(ctx, schema, t.Name)
			if err != nil {
				return err
			}
			foreignKeys, err := sql.GetForeignKeys(ctx, schema, t.Name)
			if err != nil {
				return err
			}
			targets = append(targets, exportimport.DumpTarget{
				Schema:      schema,
				Table:       t.Name,
				Columns:     columns,
				Indexes:     indexes,
				ForeignKeys: foreignKeys,
			})
		}
	}

	return exportimport.Dump(ctx, sql, targets, path, onProgress)
}
