package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/parlorgames/parlor/internal/auth"
	"github.com/parlorgames/parlor/internal/service"
)

// Route paths. The collection paths double as Location header prefixes.
const (
	basePath   = "/apiv2"
	healthPath = basePath + "/health"
	mePath     = basePath + "/external/me"
	filesPath  = basePath + "/internal/files"
	usersPath  = basePath + "/internal/users"
	gamesPath  = basePath + "/internal/games"
)

// RouterConfig holds all dependencies and settings for the API router.
type RouterConfig struct {
	Documents *service.DocumentService
	Users     *service.UserService
	Games     *service.GameService
	Verifier  TokenVerifier
	Logger    *slog.Logger

	CORSOrigin   string
	MaxBodyBytes int64
	AuthCookie   string
	Version      string
	StoreName    string
}

// NewAPIRouter assembles the middleware chain and the full route table.
//
// Chain order (outermost first): tracing → logging → CORS preflight →
// content gate → authentication → recovery → per-route role guard →
// handler. Health is the only unauthenticated path.
func NewAPIRouter(cfg RouterConfig) *Router {
	h := NewHandlers(HandlersDeps{
		Documents: cfg.Documents,
		Users:     cfg.Users,
		Games:     cfg.Games,
		Logger:    cfg.Logger,
		Version:   cfg.Version,
		StoreName: cfg.StoreName,
	})

	r := NewRouter(
		Trace(),
		RequestLog(cfg.Logger),
		CORS(cfg.CORSOrigin),
		ContentGate(cfg.MaxBodyBytes),
		Authenticate(cfg.Verifier, cfg.AuthCookie, cfg.Logger, healthPath),
		Recovery(cfg.Logger),
	)

	r.Handle(http.MethodGet, healthPath, h.HandleHealth)

	// External surface: any authenticated role.
	r.Handle(http.MethodGet, mePath, h.HandleMe)

	// Internal surface: admin only.
	admin := RequireRole(auth.RoleAdmin)

	r.Handle(http.MethodGet, filesPath, h.HandleListDocuments, admin)
	r.Handle(http.MethodPost, filesPath, h.HandleCreateDocument, admin)
	r.Handle(http.MethodGet, filesPath+"/:id", h.HandleGetDocument, admin)
	r.Handle(http.MethodGet, filesPath+"/:id/meta", h.HandleDocumentMeta, admin)
	r.Handle(http.MethodPut, filesPath+"/:id", h.HandleReplaceDocument, admin)
	r.Handle(http.MethodPatch, filesPath+"/:id", h.HandleMergeDocument, admin)
	r.Handle(http.MethodDelete, filesPath+"/:id", h.HandleDeleteDocument, admin)

	r.Handle(http.MethodGet, usersPath, h.HandleListUsers, admin)
	r.Handle(http.MethodPost, usersPath, h.HandleCreateUser, admin)
	r.Handle(http.MethodGet, usersPath+"/:id", h.HandleGetUser, admin)
	r.Handle(http.MethodGet, usersPath+"/:id/meta", h.HandleUserMeta, admin)
	r.Handle(http.MethodPut, usersPath+"/:id", h.HandleReplaceUser, admin)
	r.Handle(http.MethodPatch, usersPath+"/:id", h.HandleMergeUser, admin)
	r.Handle(http.MethodDelete, usersPath+"/:id", h.HandleDeleteUser, admin)

	r.Handle(http.MethodGet, gamesPath, h.HandleListGames, admin)
	r.Handle(http.MethodPost, gamesPath, h.HandleCreateGame, admin)
	r.Handle(http.MethodGet, gamesPath+"/:id", h.HandleGetGame, admin)
	r.Handle(http.MethodGet, gamesPath+"/:id/meta", h.HandleGameMeta, admin)
	r.Handle(http.MethodPut, gamesPath+"/:id", h.HandleReplaceGame, admin)
	r.Handle(http.MethodPatch, gamesPath+"/:id", h.HandleMergeGame, admin)
	r.Handle(http.MethodDelete, gamesPath+"/:id", h.HandleDeleteGame, admin)

	r.Handle(http.MethodPost, gamesPath+"/:id/rounds", h.HandleAddRound, admin)
	r.Handle(http.MethodPost, gamesPath+"/:gameId/rounds/:roundId/moves", h.HandleAddMove, admin)
	r.Handle(http.MethodPatch, gamesPath+"/:gameId/rounds/:roundId/finish", h.HandleFinishRound, admin)
	r.Handle(http.MethodPatch, gamesPath+"/:id/finish", h.HandleFinishGame, admin)

	return r
}
