package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qmdx00/lifecycle"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"clas-agenda/core"
	"clas-agenda/pkg/resources"
	"clas-agenda/pkg/servers"
)

func main() {
	name, version, env := "clas-agenda", "1.0", "local"

	// 1. Config and logger
	resources.SetupConfig()

	ctx := resources.SetupLogger(context.Background(), name, version, env)

	startupLogger := log.Ctx(ctx).With().Str("stage", "startup").Str("component", "main").Logger()
	shutdownLogger := log.Ctx(ctx).With().Str("stage", "shut down").Str("component", "main").Logger()

	startupLogger.Info().Msg("application starting up")
	defer shutdownLogger.Info().Msg("application stopped")

	// 2. Telemetry: traces plus the zerolog -> OTel logs bridge
	stopTracerFn, err := resources.CreateTracer(ctx)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg("unable to setup tracer")
	}
	defer func() {
		stopCtx, cancelFn := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelFn()

		_ = stopTracerFn(stopCtx)
	}()

	log.Logger = log.Logger.Hook(resources.NewZerologHook(name))
	ctx = log.Logger.WithContext(ctx)

	// 3. Shared resources
	pool, err := resources.CreateDatabaseConnectionPool(ctx)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg("unable to create database connection pool")
	}

	redisClient, err := resources.CreateRedisClient(ctx)
	if err != nil {
		shutdownLogger.Fatal().Err(err).Msg("unable to create redis client")
	}

	// 4. Wiring
	repo := core.NewRepository(pool)
	prefs := core.NewPreferenceStore(redisClient)

	var notifier *core.Notifier
	if mailURL := viper.GetString("MAIL_API_URL"); mailURL != "" {
		mailer := core.NewHTTPMailer(mailURL, viper.GetString("MAIL_API_KEY"))
		notifier = core.NewNotifier(mailer, resources.MailSendDelay())
	} else {
		startupLogger.Warn().Msg("MAIL_API_URL not set, notifications disabled")
	}

	location := resources.CalendarLocation(ctx)
	handlers := core.NewHandlers(repo, notifier, prefs, core.DefaultViewConfig(), location)

	// 5. HTTP surface
	gin.SetMode(gin.ReleaseMode)

	restHandler := gin.Default()
	restHandler.Use(resources.TracerMiddleware(name))
	restHandler.Use(resources.NewHTTPMetrics(name).Middleware())
	restHandler.Use(core.ActorMiddleware(viper.GetString("JWT_SECRET")))

	restHandler.POST("/events", handlers.PostEvents)
	restHandler.GET("/events", handlers.GetEvents)
	restHandler.GET("/events/:id", handlers.GetEventById)
	restHandler.PUT("/events/:id", handlers.PutEvents)
	restHandler.DELETE("/events/:id", handlers.DeleteEvents)
	restHandler.GET("/events/:id/permissions", handlers.GetEventPermissions)

	restHandler.GET("/calendar/day", handlers.GetDayView)
	restHandler.GET("/calendar/week", handlers.GetWeekView)
	restHandler.GET("/calendar/month", handlers.GetMonthView)
	restHandler.GET("/calendar/agenda", handlers.GetAgendaView)

	restHandler.GET("/preferences/view", handlers.GetViewPreference)
	restHandler.PUT("/preferences/view", handlers.PutViewPreference)

	debugHandler := http.NewServeMux()
	debugHandler.HandleFunc("/debug/pprof/", pprof.Index)
	debugHandler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugHandler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugHandler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugHandler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 6. Lifecycle
	app := lifecycle.NewApp(
		lifecycle.WithName(name),
		lifecycle.WithVersion(version),
	)

	app.Attach(servers.BuildBaseServer(
		pool,
		resources.CloseFunc(func() { _ = redisClient.Close() }),
	))

	app.Attach(servers.BuildHttpServer("debug-server", &http.Server{
		Addr:    viper.GetString("HTTP_HOST") + ":" + viper.GetString("DEBUG_PORT"),
		Handler: debugHandler,
	}))

	app.Attach(servers.BuildHttpServer("rest-server", &http.Server{
		Addr:    viper.GetString("HTTP_HOST") + ":" + viper.GetString("HTTP_PORT"),
		Handler: restHandler,
	}))

	startupLogger.Info().Msg("application running")

	err = app.Run()
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("runtime error")
	}
}
