package main

import (
	"github.com/Paintersrp/protonctl/internal/cli"
	"github.com/Paintersrp/protonctl/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
