package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/qiangli/lm/api"
)

var Version = "0.1.0"

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		exit(err)
	}
}

func exit(err error) {
	const max = 500
	msg := err.Error()
	if len(msg) > max {
		msg = msg[:max] + "..."
	}
	fmt.Fprintln(os.Stderr, msg)

	var ce *api.ConfigError
	var nf *api.NotFoundError
	switch {
	case errors.As(err, &ce), errors.As(err, &nf):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}
