package core

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers interface {
	PostEvents(gctx *gin.Context)
	GetEvents(gctx *gin.Context)
	GetEventById(gctx *gin.Context)
	PutEvents(gctx *gin.Context)
	DeleteEvents(gctx *gin.Context)
	GetEventPermissions(gctx *gin.Context)
	GetDayView(gctx *gin.Context)
	GetWeekView(gctx *gin.Context)
	GetMonthView(gctx *gin.Context)
	GetAgendaView(gctx *gin.Context)
	GetViewPreference(gctx *gin.Context)
	PutViewPreference(gctx *gin.Context)
}

type handlers struct {
	repository Repository
	notifier   *Notifier
	prefs      *PreferenceStore
	viewConfig ViewConfig
	location   *time.Location
	nowFn      func() time.Time
}

func NewHandlers(repository Repository, notifier *Notifier, prefs *PreferenceStore, viewConfig ViewConfig, location *time.Location) Handlers {
	if location == nil {
		location = time.Local
	}

	return &handlers{
		repository: repository,
		notifier:   notifier,
		prefs:      prefs,
		viewConfig: viewConfig,
		location:   location,
		nowFn:      time.Now,
	}
}

// agendaHorizon bounds the unbounded-future agenda fetch at the store level;
// the agenda filter itself stays open-ended.
const agendaHorizon = 10 * 365 * 24 * time.Hour

func (h *handlers) PostEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	var event Event

	err := gctx.ShouldBindJSON(&event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))

		return
	}

	event.CreatedBy = actor.UserId
	if event.Status == "" {
		event.Status = StatusPending
	}
	if event.OwnerType == "" {
		event.OwnerType = OwnerPersonal
		event.OwnerId = actor.UserId
	}

	err = ValidateEvent(event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("event validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", err))

		return
	}

	savedEvent, err := h.repository.SaveEvent(ctx, &event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("saving event failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("saving event failed", err))

		return
	}

	h.dispatchNotification(ctx, *savedEvent, NotificationCreated, nil)

	gctx.JSON(http.StatusCreated, savedEvent)
}

func (h *handlers) GetEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	from, err := parseInstant(gctx.Query("from"))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid 'from' parameter", err))
		return
	}

	to, err := parseInstant(gctx.Query("to"))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid 'to' parameter", err))
		return
	}

	events, err := h.listOwnerEvents(gctx, actor, from, to)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing events failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("listing events failed", err))

		return
	}

	gctx.JSON(http.StatusOK, VisibleEvents(events, actor))
}

func (h *handlers) GetEventById(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	id := gctx.Param("id")
	if len(id) == 0 {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' is required"))
		return
	}

	event, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Ctx(ctx).Info().Msg("event not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("getting event failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("getting event failed", err))

		return
	}

	if !CanView(*event, actor) {
		gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found"))
		return
	}

	gctx.JSON(http.StatusOK, event)
}

func (h *handlers) PutEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id := gctx.Param("id")
	if len(id) == 0 {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' is required"))
		return
	}

	var event Event

	err := gctx.ShouldBindJSON(&event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))

		return
	}

	current, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))
			return
		}

		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("getting event failed", err))

		return
	}

	event.OwnerType = current.OwnerType
	event.OwnerId = current.OwnerId
	event.CreatedBy = current.CreatedBy
	if event.Status == "" {
		event.Status = current.Status
	}

	err = ValidateEvent(event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("event validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", err))

		return
	}

	// Recipient snapshot comes before the mutation: removed participants
	// still receive the update notice, fresh joiners do not.
	recipients := h.snapshotParticipants(ctx, id)

	updatedEvent, err := h.repository.UpdateEvent(ctx, id, &event)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))
			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("updating event failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("updating event failed", err))

		return
	}

	kind := NotificationUpdated
	if updatedEvent.Status == StatusCancelled && current.Status != StatusCancelled {
		kind = NotificationCancelled
	}

	h.dispatchNotification(ctx, *updatedEvent, kind, recipients)

	gctx.JSON(http.StatusOK, updatedEvent)
}

func (h *handlers) DeleteEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id := gctx.Param("id")
	if len(id) == 0 {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' is required"))
		return
	}

	event, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))
			return
		}

		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("getting event failed", err))

		return
	}

	recipients := h.snapshotParticipants(ctx, id)

	err = h.repository.DeleteEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))
			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("deleting event failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("deleting event failed", err))

		return
	}

	h.dispatchNotification(ctx, *event, NotificationCancelled, recipients)

	gctx.Status(http.StatusNoContent)
}

func (h *handlers) GetEventPermissions(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	id := gctx.Param("id")

	event, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))
			return
		}

		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("getting event failed", err))

		return
	}

	count, err := h.repository.CountParticipants(ctx, id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("counting participants failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("counting participants failed", err))

		return
	}

	gctx.JSON(http.StatusOK, gin.H{
		"can_view":          CanView(*event, actor),
		"can_edit":          CanEdit(*event, actor),
		"can_delete":        CanDelete(*event, actor),
		"participant_count": count,
	})
}

func (h *handlers) GetDayView(gctx *gin.Context) {
	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	date, err := h.parseDate(gctx.Query("date"))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid 'date' parameter", err))
		return
	}

	events, err := h.listOwnerEvents(gctx, actor, StartOfDay(date), EndOfDay(date))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("listing events failed", err))
		return
	}

	gctx.JSON(http.StatusOK, BuildDayView(events, actor, date, h.nowFn().In(h.location), h.viewConfig))
}

func (h *handlers) GetWeekView(gctx *gin.Context) {
	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	date, err := h.parseDate(gctx.Query("date"))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid 'date' parameter", err))
		return
	}

	viewportWidth, _ := strconv.Atoi(gctx.Query("viewport_width"))

	weekStart := StartOfWeek(date)

	events, err := h.listOwnerEvents(gctx, actor, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("listing events failed", err))
		return
	}

	gctx.JSON(http.StatusOK, BuildWeekView(events, actor, date, h.nowFn().In(h.location), viewportWidth, h.viewConfig))
}

func (h *handlers) GetMonthView(gctx *gin.Context) {
	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	date, err := h.parseDate(gctx.Query("date"))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid 'date' parameter", err))
		return
	}

	grid := MonthGridDays(date)

	events, err := h.listOwnerEvents(gctx, actor, grid[0], grid[len(grid)-1].AddDate(0, 0, 1))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("listing events failed", err))
		return
	}

	gctx.JSON(http.StatusOK, BuildMonthView(events, actor, date, h.viewConfig))
}

func (h *handlers) GetAgendaView(gctx *gin.Context) {
	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	now := h.nowFn().In(h.location)
	lookahead := ParseLookahead(gctx.Query("lookahead"))
	query := gctx.Query("q")

	events, err := h.listOwnerEvents(gctx, actor, now, now.Add(agendaHorizon))
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("listing events failed", err))
		return
	}

	gctx.JSON(http.StatusOK, BuildAgendaView(events, actor, now, lookahead, query))
}

func (h *handlers) GetViewPreference(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	pref, err := h.prefs.Get(ctx, actor.UserId)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("loading view preference failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("loading view preference failed", err))

		return
	}

	gctx.JSON(http.StatusOK, pref)
}

func (h *handlers) PutViewPreference(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	actor, ok := ActorFromContext(gctx)
	if !ok {
		gctx.AbortWithStatusJSON(http.StatusUnauthorized, NewError("no actor in context"))
		return
	}

	var pref ViewPreference

	err := gctx.ShouldBindJSON(&pref)
	if err != nil {
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))
		return
	}

	err = h.prefs.Set(ctx, actor.UserId, pref)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("storing view preference failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("storing view preference failed", err))

		return
	}

	gctx.JSON(http.StatusOK, pref)
}

// listOwnerEvents resolves the owner context (personal calendar by default,
// a CLAS center when owner_type=clas) and fetches the range snapshot.
func (h *handlers) listOwnerEvents(gctx *gin.Context, actor Actor, from, to time.Time) ([]Event, error) {
	ownerType := OwnerType(gctx.DefaultQuery("owner_type", string(OwnerPersonal)))

	ownerId := gctx.Query("owner_id")
	if ownerId == "" {
		ownerId = actor.UserId
	}

	return h.repository.ListEventsInRange(gctx.Request.Context(), ownerType, ownerId, from, to)
}

func (h *handlers) snapshotParticipants(ctx context.Context, eventId string) []string {
	recipients, err := h.repository.GetParticipantIds(ctx, eventId)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event_id", eventId).Msg("participant snapshot failed")
		return nil
	}

	return recipients
}

// dispatchNotification sends the notices off the request path. For created
// events the recipient set is looked up after the save (the invitees were
// just attached); for updates and deletes the caller passes the snapshot
// taken before the mutation.
func (h *handlers) dispatchNotification(ctx context.Context, event Event, kind NotificationKind, recipients []string) {
	if h.notifier == nil {
		return
	}

	background := context.WithoutCancel(ctx)

	go func() {
		if kind == NotificationCreated && recipients == nil {
			recipients = h.snapshotParticipants(background, event.Id)
		}

		if len(recipients) == 0 {
			return
		}

		h.notifier.NotifyParticipants(background, event, kind, recipients)
	}()
}

func (h *handlers) parseDate(value string) (time.Time, error) {
	if value == "" {
		return h.nowFn().In(h.location), nil
	}

	return time.ParseInLocation("2006-01-02", value, h.location)
}

func parseInstant(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
