package driver

import (
	"context"

	"github.com/berbicanes/queryark/internal/dberrors"
)

// HandleKind tags which capability a DriverHandle carries.
type HandleKind string

const (
	HandleSql      HandleKind = "Sql"
	HandleDocument HandleKind = "Document"
	HandleKeyValue HandleKind = "KeyValue"
	HandleGraph    HandleKind = "Graph"
)

// Handle is a typed wrapper that knows which capability interface a
// connected driver satisfies. Exactly one of the four fields is populated,
// matching Kind.
type Handle struct {
	Kind HandleKind

	sql      Sql
	document Document
	keyvalue KeyValue
	graph    Graph
}

func NewSqlHandle(d Sql) Handle           { return Handle{Kind: HandleSql, sql: d} }
func NewDocumentHandle(d Document) Handle { return Handle{Kind: HandleDocument, document: d} }
func NewKeyValueHandle(d KeyValue) Handle { return Handle{Kind: HandleKeyValue, keyvalue: d} }
func NewGraphHandle(d Graph) Handle       { return Handle{Kind: HandleGraph, graph: d} }

// Base returns the common capability surface regardless of which family
// the handle carries.
func (h Handle) Base() Base {
	switch h.Kind {
	case HandleSql:
		return h.sql
	case HandleDocument:
		return h.document
	case HandleKeyValue:
		return h.keyvalue
	case HandleGraph:
		return h.graph
	default:
		return nil
	}
}

func (h Handle) AsSql() (Sql, error) {
	if h.Kind == HandleSql {
		return h.sql, nil
	}
	return nil, dberrors.UnsupportedOperation("this database does not support SQL operations")
}

func (h Handle) AsDocument() (Document, error) {
	if h.Kind == HandleDocument {
		return h.document, nil
	}
	return nil, dberrors.UnsupportedOperation("this database does not support document operations")
}

func (h Handle) AsKeyValue() (KeyValue, error) {
	if h.Kind == HandleKeyValue {
		return h.keyvalue, nil
	}
	return nil, dberrors.UnsupportedOperation("this database does not support key-value operations")
}

func (h Handle) AsGraph() (Graph, error) {
	if h.Kind == HandleGraph {
		return h.graph, nil
	}
	return nil, dberrors.UnsupportedOperation("this database does not support graph operations")
}

func (h Handle) BeginTransaction(ctx context.Context) error {
	sql, err := h.AsSql()
	if err != nil {
		return err
	}
	return sql.BeginTransaction(ctx)
}

func (h Handle) CommitTransaction(ctx context.Context) error {
	sql, err := h.AsSql()
	if err != nil {
		return err
	}
	return sql.CommitTransaction(ctx)
}

func (h Handle) RollbackTransaction(ctx context.Context) error {
	sql, err := h.AsSql()
	if err != nil {
		return err
	}
	return sql.RollbackTransaction(ctx)
}
