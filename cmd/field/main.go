package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	fieldcmd "github.com/louisbranch/solarfield/internal/cmd/field"
)

func main() {
	cfg, err := fieldcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[FIELD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fieldcmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("field: %v", err)
	}
}
