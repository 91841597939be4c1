// Package config provides configuration management for the irrigation
// controller.
//
// Configuration is loaded from environment variables using the env package.
// With nothing set the server listens on 0.0.0.0:5000.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
