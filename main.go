package main

import (
	"github.com/jdsquared/thequeue/cmd"
	"github.com/jdsquared/thequeue/pkg/logger"
	"github.com/jdsquared/thequeue/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()
	if err := telemetry.Init("thequeue"); err != nil {
		logger.L().Warn("Telemetry disabled: " + err.Error())
	}

	cmd.Execute()
}
