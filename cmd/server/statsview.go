package main

import (
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"go.uber.org/zap"
)

const statsViewAddr = "localhost:12600"

// launchStatsView serves live runtime charts on statsViewAddr
func launchStatsView(logger *zap.Logger) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(statsViewAddr))
		mgr := statsview.New()
		mgr.Start()
	}()

	logger.Info("stats server available", zap.String("url", "http://"+statsViewAddr+"/debug/statsview"))
}
