package main

import (
	"time"

	"github.com/newsdesk/newsdesk/analytics"
	"github.com/newsdesk/newsdesk/config"
	"github.com/newsdesk/newsdesk/models"
	"github.com/newsdesk/newsdesk/routes"
	"github.com/newsdesk/newsdesk/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Article{}, &models.ReadEvent{}, &models.DailyAggregate{})

	r := routes.SetupRouter(db)

	// Nightly rollup of read events into daily aggregates
	scheduler := analytics.NewScheduler(
		analytics.NewAggregator(db),
		cfg.RollupHourUTC,
		cfg.RollupMinuteUTC,
		time.Duration(cfg.RollupTimeout)*time.Second,
	)
	scheduler.Start()
	defer scheduler.Stop()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
