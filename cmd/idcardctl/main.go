// Command idcardctl validates and imports ID card CSV files from the shell.
//
//	idcardctl validate --type student students.csv
//	idcardctl template --type employee --xlsx employees.xlsx
//	idcardctl import --type student students.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errImportFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		}
		os.Exit(1)
	}
}
