/**
 * @description
 * This is the main entry point for the SplitUp command-line client. It loads
 * an optional .env file and hands the arguments to the command tree.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nsa09-nsa09/splitup-frontend/internal/cli"
)

func main() {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
