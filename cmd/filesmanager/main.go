// Command filesmanager runs the file storage and sharing API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/filesmanager/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		fmt.Fprintf(os.Stderr, "filesmanager: %v\n", err)
		os.Exit(1)
	}
}
