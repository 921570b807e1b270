package novasql

import "github.com/minisql-engine/core/internal/engine"

// Package novasql is the top-level facade for NovaSQL engine. Fixing golangci-lint
type Database = engine.Database
