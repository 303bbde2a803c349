// Package config provides configuration parsing for airset.
//
// The configuration is stored in airset.json. This package handles loading,
// saving, and validating it.
//
// # Configuration File Structure
//
//	{
//	  "store": {
//	    "debug": false,
//	    "compare": "shallow"
//	  },
//	  "inspector": {
//	    "address": "localhost:7070",
//	    "metricsPath": "/metrics",
//	    "allowedOrigins": ["http://localhost:5173"]
//	  },
//	  "telemetry": {
//	    "namespace": "airset",
//	    "tracing": true
//	  },
//	  "documents": [
//	    {"name": "todos", "file": "data/todos.yaml"}
//	  ]
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Inspector:", cfg.Inspector.Address)
package config
