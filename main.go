package main

import (
	"context"
	"log"

	"strava-challenge/internal/cli"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	return cli.NewRootCommand().ExecuteContext(context.Background())
}
