package main

import (
	"fmt"
	"os"

	"github.com/brightloop/batchcore/internal/app"
	"github.com/brightloop/batchcore/internal/platform/envutil"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize batchcore: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	port := envutil.Str("PORT", "8080")
	a.Log.Info("batchcore admin surface listening", "port", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Warn("admin server stopped", "error", err)
	}
}
