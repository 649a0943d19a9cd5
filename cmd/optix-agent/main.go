package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	"k8s.io/apiserver/pkg/server"

	"optix.io/optix/cmd/optix-agent/app"
)

func main() {
	ctx := server.SetupSignalContext()
	if err := app.NewAgentCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
