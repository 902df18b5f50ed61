package main

import (
	"context"
	"flag"
	"os"

	fieldcmd "github.com/louisbranch/solarfield/internal/cmd/field"
	"github.com/louisbranch/solarfield/internal/platform/config"
)

func main() {
	cfg, err := fieldcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnError(err, "parse flags")
	config.ExitOnError(fieldcmd.Verify(context.Background(), cfg, os.Stdout), "verify")
}
