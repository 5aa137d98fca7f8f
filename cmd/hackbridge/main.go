// Command hackbridge runs the local interactive shell over the file backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hackbridge/hackbridge/internal/app"
	"github.com/hackbridge/hackbridge/internal/client/shell"
	"github.com/hackbridge/hackbridge/internal/config"
	"github.com/hackbridge/hackbridge/internal/logger"
)

var (
	version   string
	buildDate string
)

// localSecret signs tokens of the local shell; later flags override it.
const localSecret = "-jwt-secret=hackbridge-local"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "-version" {
		fmt.Printf("HackBridge\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	options, err := config.Load(append([]string{localSecret, "-log-level=error"}, os.Args[1:]...))
	if err != nil {
		log.Fatal(err)
	}

	l := logger.New()
	if err := l.Init(options.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Log.Sync() }()

	ctx := context.Background()
	store, err := app.OpenStore(ctx, options.Storage, l.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	a, err := app.New(ctx, store, options, l.Log)
	if err != nil {
		log.Fatal(err)
	}
	shell.New(a, os.Stdin, os.Stdout).Run(ctx)
}
