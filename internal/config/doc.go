// Package config provides configuration parsing for focus projects.
//
// The configuration is stored in focus.json (or focus.yaml) at the project
// root. It declares the stores a process hosts, the components bound to
// them, and the server, snapshot and logging settings.
//
// # Configuration File Structure
//
//	{
//	  "name": "directory",
//	  "stores": [
//	    {"identifier": "users", "properties": ["user", "roles"]},
//	    {"identifier": "refs", "properties": ["countries"]}
//	  ],
//	  "components": [
//	    {
//	      "name": "user-detail",
//	      "subscriptions": [
//	        {"store": "users", "properties": ["user"]},
//	        {"store": "refs", "properties": ["countries"]}
//	      ],
//	      "referenceNames": ["countries"],
//	      "shape": ["name", "email"],
//	      "useDefaultStoreData": true
//	    }
//	  ],
//	  "server": {"host": "localhost", "port": 4000, "metricsPath": "/metrics"},
//	  "snapshot": {"backend": "file", "dir": ".focus/snapshots"},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
