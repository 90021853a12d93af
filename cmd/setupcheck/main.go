// Package main verifies the site configuration before deployment.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/ounjeeh/staples/internal/cmd/setupcheck"
	"github.com/ounjeeh/staples/internal/platform/config"
)

func main() {
	cfg, err := setupcheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := setupcheck.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("%v", err)
	}
}
