package novasqlwire

import (
	"fmt"

	"github.com/minisql-engine/core/internal/engine"
	"github.com/minisql-engine/core/internal/record"
)

// session binds one connection to one open Database and dispatches framed
// Requests against it. A fresh session is created per connection; every
// session shares the server's single Database, and with it one buffer pool
// and catalog.
type session struct {
	db *engine.Database
}

func newSession(db *engine.Database) *session {
	return &session{db: db}
}

func (s *session) handle(req Request) Response {
	resp := Response{ID: req.ID}

	rows, err := s.dispatch(req)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Rows = rows
	return resp
}

func (s *session) dispatch(req Request) ([][]any, error) {
	switch req.Op {
	case OpCreateTable:
		return nil, s.createTable(req)
	case OpInsertRow:
		return nil, s.insertRow(req)
	case OpScanTable:
		return s.scanTable(req)
	case OpCreateIndex:
		return nil, s.createIndex(req)
	case OpIndexLookup:
		return s.indexLookup(req)
	default:
		return nil, fmt.Errorf("novasqlwire: unknown op %q", req.Op)
	}
}

func (s *session) createTable(req Request) error {
	schema, err := schemaFromSpecs(req.Columns)
	if err != nil {
		return err
	}
	_, err = s.db.CreateTable(req.Table, schema)
	return err
}

func (s *session) insertRow(req Request) error {
	th, info, err := s.db.OpenTable(req.Table)
	if err != nil {
		return err
	}
	values, err := coerceValues(info.Schema, req.Values)
	if err != nil {
		return err
	}
	data, err := record.EncodeRow(info.Schema, values)
	if err != nil {
		return err
	}
	_, err = th.InsertTuple(data)
	return err
}

func (s *session) scanTable(req Request) ([][]any, error) {
	th, info, err := s.db.OpenTable(req.Table)
	if err != nil {
		return nil, err
	}

	it, err := th.Begin()
	if err != nil {
		return nil, err
	}

	var rows [][]any
	for it.Valid() {
		values, err := record.DecodeRow(info.Schema, it.Tuple())
		if err != nil {
			return nil, err
		}
		rows = append(rows, values)
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *session) createIndex(req Request) error {
	_, err := s.db.CreateBTreeIndex(req.Table, req.Index, req.KeyColumn)
	return err
}

func (s *session) indexLookup(req Request) ([][]any, error) {
	tree, _, err := s.db.OpenBTreeIndex(req.Table, req.Index)
	if err != nil {
		return nil, err
	}
	th, info, err := s.db.OpenTable(req.Table)
	if err != nil {
		return nil, err
	}

	rids, err := tree.SearchEqual(req.Key)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(rids))
	for _, rid := range rids {
		tuple, err := th.GetTuple(rid)
		if err != nil {
			return nil, err
		}
		values, err := record.DecodeRow(info.Schema, tuple)
		if err != nil {
			return nil, err
		}
		rows = append(rows, values)
	}
	return rows, nil
}

func schemaFromSpecs(specs []ColumnSpec) (record.Schema, error) {
	cols := make([]record.Column, len(specs))
	for i, spec := range specs {
		typ, err := columnTypeFromString(spec.Type)
		if err != nil {
			return record.Schema{}, err
		}
		cols[i] = record.Column{Name: spec.Name, Type: typ, Nullable: spec.Nullable}
	}
	return record.Schema{Cols: cols}, nil
}

func columnTypeFromString(s string) (record.ColumnType, error) {
	switch s {
	case "int32":
		return record.ColInt32, nil
	case "int64":
		return record.ColInt64, nil
	case "bool":
		return record.ColBool, nil
	case "float64":
		return record.ColFloat64, nil
	case "text":
		return record.ColText, nil
	case "bytes":
		return record.ColBytes, nil
	default:
		return 0, fmt.Errorf("novasqlwire: unknown column type %q", s)
	}
}

// coerceValues converts the JSON-decoded request values (numbers always
// arrive as float64) into the Go types EncodeRow expects for each column's
// declared type.
func coerceValues(schema record.Schema, raw []any) ([]any, error) {
	if len(raw) != len(schema.Cols) {
		return nil, fmt.Errorf("novasqlwire: expected %d values, got %d", len(schema.Cols), len(raw))
	}

	values := make([]any, len(raw))
	for i, col := range schema.Cols {
		v := raw[i]
		if v == nil {
			values[i] = nil
			continue
		}

		switch col.Type {
		case record.ColInt32:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want number, got %T", col.Name, v)
			}
			values[i] = int32(f)
		case record.ColInt64:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want number, got %T", col.Name, v)
			}
			values[i] = int64(f)
		case record.ColBool:
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want bool, got %T", col.Name, v)
			}
			values[i] = b
		case record.ColFloat64:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want number, got %T", col.Name, v)
			}
			values[i] = f
		case record.ColText:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want string, got %T", col.Name, v)
			}
			values[i] = str
		case record.ColBytes:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("novasqlwire: column %q: want string, got %T", col.Name, v)
			}
			values[i] = []byte(str)
		default:
			return nil, fmt.Errorf("novasqlwire: column %q: unsupported type %v", col.Name, col.Type)
		}
	}
	return values, nil
}
