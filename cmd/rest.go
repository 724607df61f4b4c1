package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	globalConfig "github.com/ymzk/threadpilot/config"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	"github.com/ymzk/threadpilot/ui/rest"
	"github.com/ymzk/threadpilot/ui/rest/middleware"
	"github.com/ymzk/threadpilot/ui/websocket"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the scheduler HTTP API",
	Long:  `Starts the REST server: jobs invocation, OAuth handshake, manual posting, admin CRUD and the websocket outcome feed.`,
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	fiberConfig := fiber.Config{
		Network:               "tcp",
		AppName:               "threadpilot",
		DisableStartupMessage: false,
		ServerHeader:          "Hidden",
	}
	if len(globalConfig.AppTrustedProxies) > 0 {
		fiberConfig.EnableTrustedProxyCheck = true
		fiberConfig.TrustedProxies = globalConfig.AppTrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Jobs-Key, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	if globalConfig.AppDebug {
		app.Use(logger.New())
	}

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		StopApp()
	}()

	apiGroup := app.Group(globalConfig.AppBasePath)

	rest.InitRestHealth(apiGroup)
	rest.InitRestJobs(apiGroup, runnerUsecase)
	rest.InitRestPost(apiGroup, postUsecase)
	rest.InitRestAuth(apiGroup, authUsecase)
	rest.InitRestAccount(apiGroup, accountUsecase)
	rest.InitRestSchedule(apiGroup, scheduleUsecase)
	rest.InitRestTemplate(apiGroup, templateUsecase)
	rest.InitRestOutcome(apiGroup, repo)

	// Websocket outcome feed
	websocket.SetValkeyClient(vkClient, serverID)
	websocket.RegisterRoutes(apiGroup, repo)
	go websocket.RunHub()

	startRunTicker()

	if err := app.Listen(":" + globalConfig.AppPort); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

// startRunTicker drives due batches in-process. Disabled when an external
// cron invokes /jobs/run instead.
func startRunTicker() {
	if globalConfig.JobsTickerMinutes <= 0 {
		logrus.Info("[REST] Run ticker disabled, expecting external /jobs/run invocations")
		return
	}

	go func() {
		ticker := time.NewTicker(time.Duration(globalConfig.JobsTickerMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			summary, err := runnerUsecase.RunDue(context.Background(), false)
			if err != nil {
				if errors.Is(err, domainRunner.ErrRunInProgress) {
					logrus.Debug("[REST] Skipping tick, another run is in progress")
					continue
				}
				logrus.WithError(err).Error("[REST] Scheduled run failed")
				continue
			}
			if summary.Ran > 0 {
				logrus.WithField("ran", summary.Ran).Info("[REST] Scheduled run completed")
			}
		}
	}()
}
