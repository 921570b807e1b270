package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/minisql-engine/core/internal"
	"github.com/minisql-engine/core/internal/storage"
	"github.com/minisql-engine/core/server/novasqlwire"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "novasql.yaml", "Path to novasql yaml config")
	flag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	addr := os.Getenv("NOVASQL_ADDR")
	if addr == "" {
		port := cfg.Server.Port
		if port == 0 {
			port = 6543
		}
		addr = fmt.Sprintf("127.0.0.1:%d", port)
	}

	dataDir := cfg.Storage.File
	if dataDir == "" {
		dataDir = "./data"
	}

	if err := os.MkdirAll(dataDir, storage.FileMode0755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	sc := novasqlwire.ServerConfig{
		Addr:           addr,
		DataDir:        dataDir,
		BufferPoolSize: cfg.Storage.BufferPoolSize,
	}

	if err := novasqlwire.Run(sc); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
