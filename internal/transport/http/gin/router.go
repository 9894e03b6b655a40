package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/seatcore/internal/domain"
	"github.com/kirinyoku/seatcore/internal/layout"
	"github.com/kirinyoku/seatcore/internal/repository"
	redisrepo "github.com/kirinyoku/seatcore/internal/repository/redis"
	"github.com/kirinyoku/seatcore/internal/rules"
	"github.com/kirinyoku/seatcore/internal/seatcode"
	"github.com/kirinyoku/seatcore/internal/service"
	"github.com/kirinyoku/seatcore/internal/service/layouts"
	"github.com/kirinyoku/seatcore/internal/service/query"
	"github.com/kirinyoku/seatcore/internal/service/reservation"
	"github.com/kirinyoku/seatcore/internal/service/shows"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health + metrics
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API
	r.GET("/shows", handleListShows(svcs))
	r.GET("/shows/:id/layout", handleGetLayout(svcs))
	r.GET("/shows/:id/availability", handleGetAvailability(svcs))
	r.GET("/shows/:id/sections", handleSectionAvailability(svcs))
	r.GET("/shows/:id/seats", handleListSeats(svcs))
	r.GET("/shows/:id/seats/nearest", handleNearestSeat(svcs))
	r.GET("/shows/:id/codes/:code", handleResolveCode(svcs))
	r.GET("/shows/:id/holds", handleListHolds(svcs))

	r.POST("/shows/:id/holds", handleCreateHolds(svcs, idem))
	r.POST("/shows/:id/holds/release", handleReleaseHolds(svcs))
	r.POST("/shows/:id/confirm", handleConfirmSale(svcs))

	// Admin API
	// TODO: add admin middleware
	admin := r.Group("/admin")
	{
		admin.POST("/layouts", handlePublishLayout(svcs))
		admin.POST("/shows", handleScheduleShow(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Publish a layout version
// @Param    req body  domain.LayoutSpec true "section descriptors"
// @Success  201 {object} PublishLayoutResponse
// @Failure  422 {object} ErrorResponse "capacity mismatch / seat collision"
// @Router   /admin/layouts [post]
func handlePublishLayout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var spec domain.LayoutSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			badRequest(c, err.Error())
			return
		}

		snap, err := svcs.Layouts.Publish(c.Request.Context(), spec)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, PublishLayoutResponse{
			VenueID:   snap.Layout.VenueID,
			Version:   snap.Layout.Version,
			Viewport:  snap.Layout.Viewport,
			SeatCount: snap.Layout.SeatCount(),
		})
	}
}

// @Summary  Schedule a show against the active layout
// @Param    req body  ScheduleShowRequest true "payload"
// @Success  201 {object} ScheduleShowResponse
// @Failure  422 {object} ErrorResponse "code space exceeds capacity"
// @Router   /admin/shows [post]
func handleScheduleShow(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScheduleShowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		ends, err := parseRFC3339(req.EndsAt)
		if err != nil {
			badRequest(c, "invalid ends_at (RFC3339)")
			return
		}

		snap, err := svcs.Shows.Schedule(
			c.Request.Context(),
			req.VenueID,
			req.Title,
			starts,
			ends,
			req.CodeSpace,
			req.Aliases,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, ScheduleShowResponse{
			ShowID:        snap.Show.ID,
			LayoutVersion: snap.Show.LayoutVersion,
			SeatCount:     snap.Layout.SeatCount(),
			CodeCount:     snap.Codes.Len(),
		})
	}
}

// @Summary  List shows
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200 {array} domain.Show
// @Router   /shows [get]
func handleListShows(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Shows.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get the show's pinned layout
// @Param    id  path  int  true  "Show ID"
// @Success  200 {object} domain.VenueLayout
// @Failure  404 {object} ErrorResponse
// @Router   /shows/{id}/layout [get]
func handleGetLayout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		l, err := svcs.Query.Layout(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// layouts are immutable, cache aggressively
		writeJSONWithCache(c, http.StatusOK, l, "public, max-age=3600", true)
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Show ID"
// @Success  200 {object} domain.ShowCounts
// @Router   /shows/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Reservation.Availability(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, cnt, "public, max-age=5", true)
	}
}

// @Summary  Per-section capacity and live counts
// @Param    id  path  int  true  "Show ID"
// @Success  200 {array} query.SectionCounts
// @Failure  404 {object} ErrorResponse
// @Router   /shows/{id}/sections [get]
func handleSectionAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Query.SectionAvailability(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=5", true)
	}
}

// @Summary  List seats with live status
// @Description Without viewport params returns the whole seat map; with
// @Description min_x/min_y/max_x/max_y only seats inside the rectangle.
// @Param    id     path   int     true  "Show ID"
// @Param    min_x  query  number  false "viewport"
// @Param    min_y  query  number  false "viewport"
// @Param    max_x  query  number  false "viewport"
// @Param    max_y  query  number  false "viewport"
// @Success  200 {array} query.SeatView
// @Router   /shows/{id}/seats [get]
func handleListSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var (
			views []query.SeatView
			err   error
		)
		if hasViewportParams(c) {
			r, perr := parseViewport(c)
			if perr != nil {
				badRequest(c, perr.Error())
				return
			}
			views, err = svcs.Query.Viewport(c.Request.Context(), showID, r)
		} else {
			views, err = svcs.Query.SeatMap(c.Request.Context(), showID)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, views, "public, max-age=5", true)
	}
}

// @Summary  Nearest seat to a point
// @Param    id      path   int     true  "Show ID"
// @Param    x       query  number  true  "point x"
// @Param    y       query  number  true  "point y"
// @Param    radius  query  number  true  "search radius"
// @Success  200 {object} query.SeatView
// @Failure  404 {object} ErrorResponse "no seat within radius"
// @Router   /shows/{id}/seats/nearest [get]
func handleNearestSeat(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		x, errX := strconv.ParseFloat(c.Query("x"), 64)
		y, errY := strconv.ParseFloat(c.Query("y"), 64)
		radius, errR := strconv.ParseFloat(c.Query("radius"), 64)
		if errX != nil || errY != nil || errR != nil {
			badRequest(c, "x, y and radius must be numbers")
			return
		}

		view, err := svcs.Query.Nearest(c.Request.Context(), showID, domain.Point{X: x, Y: y}, radius)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// @Summary  Resolve an external seat code
// @Param    id    path  int     true  "Show ID"
// @Param    code  path  string  true  "external code"
// @Success  200 {object} query.SeatView
// @Failure  404 {object} ErrorResponse "code not mapped"
// @Router   /shows/{id}/codes/{code} [get]
func handleResolveCode(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		view, err := svcs.Query.Resolve(c.Request.Context(), showID, c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// @Summary  List a holder's live holds
// @Param    id         path   int     true  "Show ID"
// @Param    holder_id  query  string  true  "holder"
// @Success  200 {array} string
// @Router   /shows/{id}/holds [get]
func handleListHolds(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		holderID := c.Query("holder_id")
		if holderID == "" {
			badRequest(c, "holder_id is required")
			return
		}
		seatIDs, err := svcs.Reservation.HeldBy(c.Request.Context(), showID, holderID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, seatIDs)
	}
}

// @Summary  Hold seats (idempotent)
// @Param    id  path  int  true  "Show ID"
// @Param    req body  CreateHoldsRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateHoldsResponse
// @Failure  409 {object} ErrorResponse "seats unavailable / idem in progress"
// @Failure  422 {object} RuleViolationResponse "rule violation with alternatives"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /shows/{id}/holds [post]
func handleCreateHolds(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateHoldsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemHold(showID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		ttl := time.Duration(req.TTLSec) * time.Second
		rlKey := "ip:" + c.ClientIP()

		holds, err := svcs.Reservation.AcquireHolds(
			c.Request.Context(),
			showID,
			req.HolderID,
			req.SeatIDs,
			ttl,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateHoldsResponse{Holds: make([]HoldView, len(holds))}
		for i, h := range holds {
			resp.Holds[i] = HoldView{SeatID: h.SeatID, Expires: h.Expires}
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Release held seats
// @Param    id  path  int  true  "Show ID"
// @Param    req body  SeatBatchRequest true "payload"
// @Success  204
// @Failure  403 {object} ErrorResponse "held by another holder"
// @Failure  409 {object} ErrorResponse
// @Router   /shows/{id}/holds/release [post]
func handleReleaseHolds(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SeatBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Reservation.Release(
			c.Request.Context(),
			showID,
			req.HolderID,
			req.SeatIDs,
		); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Confirm sale of held seats, all or nothing
// @Param    id  path  int  true  "Show ID"
// @Param    req body  SeatBatchRequest true "payload"
// @Success  200 {object} domain.ShowCounts
// @Failure  409 {object} ConfirmConflictResponse
// @Router   /shows/{id}/confirm [post]
func handleConfirmSale(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		showID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SeatBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Reservation.ConfirmSale(
			c.Request.Context(),
			showID,
			req.HolderID,
			req.SeatIDs,
		); err != nil {
			respondErr(c, err)
			return
		}

		cnt, err := svcs.Reservation.Availability(c.Request.Context(), showID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, cnt)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func hasViewportParams(c *gin.Context) bool {
	return c.Query("min_x") != "" || c.Query("min_y") != "" ||
		c.Query("max_x") != "" || c.Query("max_y") != ""
}

func parseViewport(c *gin.Context) (domain.Rect, error) {
	var r domain.Rect
	var err error
	if r.MinX, err = strconv.ParseFloat(c.Query("min_x"), 64); err != nil {
		return r, errors.New("invalid min_x")
	}
	if r.MinY, err = strconv.ParseFloat(c.Query("min_y"), 64); err != nil {
		return r, errors.New("invalid min_y")
	}
	if r.MaxX, err = strconv.ParseFloat(c.Query("max_x"), 64); err != nil {
		return r, errors.New("invalid max_x")
	}
	if r.MaxY, err = strconv.ParseFloat(c.Query("max_y"), 64); err != nil {
		return r, errors.New("invalid max_y")
	}
	return r, nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		rateLimited *reservation.RateLimitedError
		violation   *rules.ViolationError
		confirm     *repository.ConfirmConflictError
		capMismatch *layout.SectionCapacityMismatchError
		collision   *layout.SeatCollisionError
	)

	switch {
	// rule engine
	case errors.As(err, &violation):
		c.JSON(http.StatusUnprocessableEntity, RuleViolationResponse{
			Error:        "business rule violated",
			Rule:         violation.Rule,
			SeatIDs:      violation.SeatIDs,
			Alternatives: violation.Alternatives,
		})
		return
	// all-or-nothing confirm
	case errors.As(err, &confirm):
		c.JSON(http.StatusConflict, ConfirmConflictResponse{
			Error:    "confirm rejected",
			Failures: confirm.Failures,
		})
		return
	// rate limiter
	case errors.As(err, &rateLimited):
		c.Header("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	// layout compiler
	case errors.As(err, &capMismatch), errors.As(err, &collision):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, seatcode.ErrCodeSpaceTooLarge):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "code space exceeds seat capacity"})
		return
	// layouts service
	case errors.Is(err, layouts.ErrLayoutNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "layout not found"})
		return
	case errors.Is(err, layouts.ErrVersionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "layout version conflict"})
		return
	// shows service
	case errors.Is(err, shows.ErrShowNotFound),
		errors.Is(err, reservation.ErrShowNotFound),
		errors.Is(err, query.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "show not found"})
		return
	case errors.Is(err, shows.ErrShowConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "show conflict"})
		return
	// query service
	case errors.Is(err, query.ErrCodeUnknown):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "code not mapped"})
		return
	case errors.Is(err, query.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "seat not found"})
		return
	case errors.Is(err, query.ErrNoSeatNearby):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no seat within radius"})
		return
	// reservation service
	case errors.Is(err, reservation.ErrNoSeats),
		errors.Is(err, reservation.ErrDuplicateSeats),
		errors.Is(err, reservation.ErrUnknownSeat):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, repository.ErrNotOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the holder of these seats"})
		return
	case errors.Is(err, reservation.ErrSeatsUnavailable),
		errors.Is(err, repository.ErrSeatSold),
		errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats unavailable"})
		return
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	case errors.Is(err, repository.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
