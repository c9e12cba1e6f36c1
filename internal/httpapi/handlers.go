package httpapi

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/domain"
	"github.com/parlorgames/parlor/internal/dto"
	"github.com/parlorgames/parlor/internal/service"
)

// cacheControl is the directive successful GETs carry. Responses are
// per-user (private) and short-lived; conditional requests revalidate.
const cacheControl = "private, max-age=300"

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	documents *service.DocumentService
	users     *service.UserService
	games     *service.GameService
	logger    *slog.Logger
	startedAt time.Time
	version   string
	storeName string
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Documents *service.DocumentService
	Users     *service.UserService
	Games     *service.GameService
	Logger    *slog.Logger
	Version   string
	StoreName string
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		documents: d.Documents,
		users:     d.Users,
		games:     d.Games,
		logger:    d.Logger,
		startedAt: time.Now(),
		version:   d.Version,
		storeName: d.StoreName,
	}
}

// pathID returns the named path parameter. When single-pattern gateway
// registrations bind the whole subpath to one proxy parameter instead, the
// trailing segment of that binding is tolerated as the id.
func pathID(req *Request, name string) string {
	if v := req.Param(name); v != "" {
		return v
	}
	if proxy := req.Param("proxy"); proxy != "" {
		segs := splitPath(proxy)
		if len(segs) > 0 {
			return segs[len(segs)-1]
		}
	}
	return ""
}

// listQuery parses the list query parameters shared by every kind.
func listQuery(req *Request) (domain.ListQuery, error) {
	q := domain.ListQuery{
		Prefix: req.QueryValue("prefix"),
		Cursor: req.QueryValue("cursor"),
	}
	if raw := req.QueryValue("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 {
			return domain.ListQuery{}, apperr.Validation("limit", "limit must be a positive integer")
		}
		q.Limit = int32(n)
	}
	return q, nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Uptime  string `json:"uptime"`
}

// HandleHealth handles GET /apiv2/health. Unauthenticated.
func (h *Handlers) HandleHealth(_ context.Context, _ *Request) (*Response, error) {
	return OK(healthResponse{
		Status:  "ok",
		Version: h.version,
		Store:   h.storeName,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	}), nil
}

// HandleMe handles GET /apiv2/external/me: the user entity whose id is the
// token's subject. 404 when no such entity exists.
func (h *Handlers) HandleMe(ctx context.Context, req *Request) (*Response, error) {
	if req.User == nil {
		return nil, apperr.Unauthorized("no authenticated principal")
	}
	entity, err := h.users.Get(ctx, req.User.ID, req.IfNoneMatch())
	if err != nil {
		// A subject that cannot be a stored id has no entity.
		if apperr.KindOf(err) == apperr.KindValidation {
			return nil, apperr.NotFound("user", req.User.ID)
		}
		return nil, err
	}
	return OK(dto.NewUserResponse(entity)).
		WithETag(entity.Meta.ETag).
		WithCacheControl(cacheControl), nil
}
