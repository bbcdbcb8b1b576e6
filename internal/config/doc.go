// Package config provides the configuration system for scenetx.
//
// Configuration is resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Arguments  │  ← applied by cmd/scenetx
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← SCENETX_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← TOML
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load("scenetx.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.History.Capacity)
//
// # Live Reload
//
// Watcher reloads the file when it changes on disk and hands the new
// Config to a callback. The callback runs on the watcher goroutine.
package config
