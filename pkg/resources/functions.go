package resources

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SetupConfig binds configuration to environment variables with local
// defaults, so a bare `go run .` works against a local stack.
func SetupConfig() {
	viper.AutomaticEnv()

	viper.SetDefault("HTTP_HOST", "localhost")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("DEBUG_PORT", "6060")

	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "clas_agenda")

	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	viper.SetDefault("JWT_SECRET", "dev-secret")

	viper.SetDefault("MAIL_API_URL", "")
	viper.SetDefault("MAIL_API_KEY", "")
	viper.SetDefault("MAIL_SEND_DELAY_MS", 600)

	viper.SetDefault("CALENDAR_TZ", "Europe/Paris")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	viper.SetDefault("LOG_LEVEL", "info")
}

// SetupLogger configures the global zerolog logger with the service identity
// and returns a context carrying it.
func SetupLogger(ctx context.Context, name, version, env string) context.Context {
	level, err := zerolog.ParseLevel(viper.GetString("LOG_LEVEL"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", name).
		Str("version", version).
		Str("env", env).
		Logger()

	return log.Logger.WithContext(ctx)
}

func CreateTracer(ctx context.Context) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp, err := newTracerProvider(ctx)
	if err != nil {
		return func(context.Context) error { return nil }, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newTracerProvider(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(viper.GetString("OTLP_ENDPOINT")),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
	), nil
}

func CreateDatabaseConnectionPool(ctx context.Context) (*pgxpool.Pool, error) {
	//nolint:nosprintfhostport
	cfg, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		viper.GetString("DB_USER"), viper.GetString("DB_PASSWORD"),
		viper.GetString("DB_HOST"), viper.GetString("DB_PORT"), viper.GetString("DB_NAME")))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to parse database connection string")
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to ping database")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func CreateRedisClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(viper.GetString("REDIS_URL"))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to parse redis url")
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to ping redis")
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// MailSendDelay is the fixed pause between two notification sends.
func MailSendDelay() time.Duration {
	return time.Duration(viper.GetInt("MAIL_SEND_DELAY_MS")) * time.Millisecond
}

// CalendarLocation resolves the display timezone, falling back to the host
// local zone on a bad name.
func CalendarLocation(ctx context.Context) *time.Location {
	name := viper.GetString("CALENDAR_TZ")

	location, err := time.LoadLocation(name)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tz", name).Msg("unknown timezone, using local")
		return time.Local
	}

	return location
}
