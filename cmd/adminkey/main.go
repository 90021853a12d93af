package main

import (
	"flag"
	"os"

	"github.com/ounjeeh/staples/internal/cmd/adminkey"
	"github.com/ounjeeh/staples/internal/platform/config"
)

func main() {
	cfg, err := adminkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := adminkey.Run(cfg, os.Stdin, os.Stdout, nil); err != nil {
		config.Exitf("generate admin key: %v", err)
	}
}
