package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"clas-agenda/pkg/resources"
)

// Repository is the external data-access collaborator: the rendering engine
// only ever sees the flat event snapshots it returns.
type Repository interface {
	SaveEvent(ctx context.Context, event *Event) (*Event, error)
	GetEventById(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, id string, event *Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEventsInRange(ctx context.Context, ownerType OwnerType, ownerId string, from, to time.Time) ([]Event, error)
	GetParticipantIds(ctx context.Context, eventId string) ([]string, error)
	CountParticipants(ctx context.Context, eventId string) (int, error)
}

const eventColumns = "id, title, description, location, start_time, end_time, all_day, " +
	"target_roles, status, owner_type, owner_id, created_by, " +
	"recurrence_rule, recurrence_parent_id, recurrence_exception, created_at, updated_at"

type repository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	pool    resources.DBInstance
}

func NewRepository(pool resources.DBInstance) Repository {
	return &repository{
		tracer:  otel.GetTracerProvider().Tracer("clas-agenda/core"),
		metrics: NewDBMetrics(),
		pool:    pool,
	}
}

func (r *repository) SaveEvent(ctx context.Context, event *Event) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveEvent")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	row := tx.QueryRow(ctx,
		"INSERT INTO events (id, title, description, location, start_time, end_time, all_day, "+
			"target_roles, status, owner_type, owner_id, created_by, "+
			"recurrence_rule, recurrence_parent_id, recurrence_exception) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) "+
			"RETURNING "+eventColumns,
		uuid.NewString(), event.Title, event.Description, event.Location,
		event.StartTime, event.EndTime, event.AllDay,
		rolesToStrings(event.TargetRoles), string(event.Status),
		string(event.OwnerType), event.OwnerId, event.CreatedBy,
		event.RecurrenceRule, event.RecurrenceParentId, event.RecurrenceException)

	savedEvent, scanErr := scanEvent(row)
	if scanErr != nil {
		_ = tx.Rollback(ctx)

		err = fmt.Errorf("failed to insert event: %w", scanErr)

		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return savedEvent, nil
}

func (r *repository) GetEventById(ctx context.Context, id string) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_event_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetEventById")
	defer span.End()

	row := r.pool.QueryRow(ctx, "SELECT "+eventColumns+" FROM events WHERE id = $1", id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}

		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return event, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id string, event *Event) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "update_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.UpdateEvent")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	row := tx.QueryRow(ctx,
		"UPDATE events SET title = $2, description = $3, location = $4, start_time = $5, "+
			"end_time = $6, all_day = $7, target_roles = $8, status = $9, updated_at = now() "+
			"WHERE id = $1 "+
			"RETURNING "+eventColumns,
		id, event.Title, event.Description, event.Location,
		event.StartTime, event.EndTime, event.AllDay,
		rolesToStrings(event.TargetRoles), string(event.Status))

	updatedEvent, scanErr := scanEvent(row)
	if scanErr != nil {
		_ = tx.Rollback(ctx)

		if errors.Is(scanErr, pgx.ErrNoRows) {
			err = ErrEventNotFound
		} else {
			err = fmt.Errorf("failed to update event: %w", scanErr)
		}

		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updatedEvent, nil
}

func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.DeleteEvent")
	defer span.End()

	tag, err := r.pool.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		err = ErrEventNotFound
		return err
	}

	return nil
}

func (r *repository) ListEventsInRange(ctx context.Context, ownerType OwnerType, ownerId string, from, to time.Time) ([]Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_events_in_range", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.ListEventsInRange")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		"SELECT "+eventColumns+" FROM events "+
			"WHERE owner_type = $1 AND owner_id = $2 AND start_time < $4 AND end_time > $3 "+
			"ORDER BY start_time",
		string(ownerType), ownerId, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan event: %w", scanErr)
			return nil, err
		}

		events = append(events, *event)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

func (r *repository) GetParticipantIds(ctx context.Context, eventId string) ([]string, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_participant_ids", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetParticipantIds")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		"SELECT user_id FROM event_participants WHERE event_id = $1 ORDER BY user_id", eventId)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	return ids, nil
}

func (r *repository) CountParticipants(ctx context.Context, eventId string) (int, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "count_participants", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.CountParticipants")
	defer span.End()

	var count int

	err = r.pool.QueryRow(ctx,
		"SELECT count(*) FROM event_participants WHERE event_id = $1", eventId).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return count, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var (
		event Event
		roles []string
	)

	err := row.Scan(
		&event.Id, &event.Title, &event.Description, &event.Location,
		&event.StartTime, &event.EndTime, &event.AllDay,
		&roles, &event.Status, &event.OwnerType, &event.OwnerId, &event.CreatedBy,
		&event.RecurrenceRule, &event.RecurrenceParentId, &event.RecurrenceException,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.TargetRoles = stringsToRoles(roles)

	return &event, nil
}

func rolesToStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}

	return out
}

func stringsToRoles(values []string) []Role {
	out := make([]Role, len(values))
	for i, value := range values {
		out[i] = Role(value)
	}

	return out
}

/*

 */

type DBMetrics struct {
	qTotal   metric.Int64Counter
	qErrors  metric.Int64Counter
	qLatency metric.Float64Histogram
}

func NewDBMetrics() *DBMetrics {
	meter := otel.Meter("clas-agenda/db")

	qTotal, _ := meter.Int64Counter("db.query.total")
	qErrors, _ := meter.Int64Counter("db.query.errors.total")
	qLatency, _ := meter.Float64Histogram("db.query.duration.ms")

	return &DBMetrics{qTotal: qTotal, qErrors: qErrors, qLatency: qLatency}
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgres"),
		attribute.String("db.operation", op),
	}

	m.qTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	ms := float64(time.Since(start).Milliseconds())
	m.qLatency.Record(ctx, ms, metric.WithAttributes(attrs...))

	if err != nil {
		m.qErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
