// Package config loads pulse configuration files.
//
// The configuration lives in pulse.json, pulse.yaml or pulse.yml at the
// project root. Both formats share one schema:
//
//	title: Release board
//	items: items.json
//	serve:
//	  addr: ":8080"
//	  sendBuffer: 64
//	  writeTimeout: 10s
//	  allowedOrigins: ["https://example.com"]
//	publish:
//	  target: s3://my-bucket/boards
//	  key: index.html
//	  region: eu-west-1
//	metrics:
//	  enabled: true
//	tracing:
//	  exporter: stdout
//	log:
//	  level: debug
//	  format: json
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.Print(os.Stderr, err, true)
//	    os.Exit(1)
//	}
//	fmt.Println("Addr:", cfg.Serve.Addr)
package config
