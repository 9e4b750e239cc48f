package postgres

import (
	"context"
	"fmt"
	"time"

	logger_wrapper "github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Configs struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string

	MaxOpenedConnections int

	ApplicationName string

	ConnectionMaxIdleTime time.Duration
	ConnectionMaxLifeTime time.Duration
	HealthCheckPeriod     time.Duration
	ConnectTimeout        time.Duration
	MaxConnLifeTimeJitter time.Duration
}

type Connection struct {
	pool *pgxpool.Pool
}

func NewPostgresConnection(ctx context.Context, config Configs) *Connection {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.WriteFatalLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "Failed to parse pgxpool config",
			Error:     err,
			Component: "PostgresConnection",
			Method:    "NewPostgresConnection",
			Args:      config.Host + ":" + config.Port + "/" + config.Database,
		})
	}
	if poolConfig == nil {
		logger.WriteFatalLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "pgxpool config is nil",
			Error:     fmt.Errorf("pgxpool config is nil"),
			Component: "PostgresConnection",
			Method:    "NewPostgresConnection",
			Args:      config.Host + ":" + config.Port + "/" + config.Database,
		})
		return nil
	}

	// MaxConns — максимальное число одновременных соединений в пуле.
	// Ограничивает общий лимит, чтобы не забить сервер БД и не упереться в max_connections на Postgres.
	poolConfig.MaxConns = int32(config.MaxOpenedConnections)

	// Запоминаем общее число соединений, чтобы от него рассчитать минимальное.
	maxConnections := poolConfig.MaxConns

	// Минимальное количество постоянно открытых соединений в пуле.
	// Пул не будет опускаться ниже этого значения, даже если нагрузка низкая.
	minConnections := maxConnections / 4
	poolConfig.MinConns = minConnections

	// Максимальное время, в течение которого соединение может оставаться в пуле без использования.
	poolConfig.MaxConnIdleTime = config.ConnectionMaxIdleTime

	// Максимальное время жизни соединения в пуле, даже если оно активно используется.
	poolConfig.MaxConnLifetime = config.ConnectionMaxLifeTime

	// jitter — случайное время, добавляемое к максимальному времени жизни соединения
	poolConfig.MaxConnLifetimeJitter = config.MaxConnLifeTimeJitter

	// чтобы новые коннекты не висели вечно в момент глитчей
	poolConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout

	// периодическое health check для поддержания соединений
	poolConfig.HealthCheckPeriod = config.HealthCheckPeriod

	// application_name — для идентификации сессий в pg_stat_activity, логах и мониторинге.
	poolConfig.ConnConfig.RuntimeParams["application_name"] = config.ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.WriteFatalLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "Failed to connect to Postgres (pgxpool)",
			Error:     err,
			Component: "PostgresConnection",
			Method:    "NewPostgresConnection",
			Args:      config.Host + ":" + config.Port + "/" + config.Database,
		})
	}

	return &Connection{pool: pool}
}

// CopyFrom заливает строки через COPY. Источник можно обернуть в NewCopySource,
// тогда заливку можно ставить на паузу и останавливать на лету.
func (r *Connection) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	return r.pool.CopyFrom(ctx, table, columns, src)
}

func (r *Connection) Stop() {
	r.pool.Close()
}

func (r *Connection) GetPool() *pgxpool.Pool {
	return r.pool
}
