package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api/authapi"
	"github.com/huddlehq/huddle/internal/api/chat"
	"github.com/huddlehq/huddle/internal/api/community"
	"github.com/huddlehq/huddle/internal/api/organizations"
	"github.com/huddlehq/huddle/internal/api/posts"
	"github.com/huddlehq/huddle/internal/api/profiles"
	"github.com/huddlehq/huddle/internal/api/uploads"
	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/cache"
	"github.com/huddlehq/huddle/internal/content"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/linkpreview"
	"github.com/huddlehq/huddle/internal/mailer"
	"github.com/huddlehq/huddle/internal/notify"
	"github.com/huddlehq/huddle/internal/storage"
	"github.com/huddlehq/huddle/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler    *JSONRPCHandler
	db         *db.DB
	cache      *cache.Cache
	middleware *auth.Middleware
	authREST   *authapi.Handler
	uploadREST *uploads.Handler
	logger     *zap.Logger
}

// Deps carries everything the API surface needs.
type Deps struct {
	DB            *db.DB
	Cache         *cache.Cache
	Tokens        *auth.TokenManager
	Sessions      *auth.SessionStore
	Mail          *mailer.Mailer
	Notifier      *notify.Notifier
	Storage       *storage.Client
	Previews      *linkpreview.Fetcher
	ConvertSecret string
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	handler := NewJSONRPCHandler()
	repo := db.NewRepository(deps.DB.DB)

	router := &Router{
		handler:    handler,
		db:         deps.DB,
		cache:      deps.Cache,
		middleware: auth.NewMiddleware(deps.Tokens, deps.Sessions, repo),
		authREST:   authapi.NewHandler(repo, deps.Tokens, deps.Sessions, deps.Mail),
		uploadREST: uploads.NewHandler(repo, deps.Storage, deps.Previews, deps.ConvertSecret),
		logger:     logging.WithComponent("api-router"),
	}

	router.registerMethods(repo, deps)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint; methods resolve the actor themselves so the
	// middleware runs in optional mode here.
	engine.POST("/", r.middleware.Handler(false), r.handler.Handle)

	// Auth REST
	engine.POST("/api/auth/register", r.authREST.Register)
	engine.POST("/api/auth/login", r.authREST.Login)
	engine.POST("/api/auth/logout", r.middleware.Handler(true), r.authREST.Logout)

	// Attachment pipeline
	engine.POST("/api/uploads/request", r.middleware.Handler(true), r.uploadREST.RequestUpload)
	engine.POST("/api/uploads/confirm", r.middleware.Handler(true), r.uploadREST.ConfirmUpload)
	// Converter callbacks authenticate with a shared secret, not a user
	// session.
	engine.POST("/api/videos/convert/complete", r.uploadREST.ConvertComplete)
	engine.POST("/api/videos/convert/error", r.uploadREST.ConvertError)
	engine.GET("/api/images/:id", r.uploadREST.Image)
	engine.GET("/api/link-preview", r.uploadREST.LinkPreview)
}

// registerMethods registers all JSON-RPC methods
func (r *Router) registerMethods(repo *db.Repository, deps Deps) {
	contentSvc := content.NewService(repo, deps.Cache)

	orgAPI := organizations.NewAPI(repo, contentSvc, deps.Mail)
	r.handler.RegisterMethod("organizations.create", orgAPI.Create)
	r.handler.RegisterMethod("organizations.get", orgAPI.Get)
	r.handler.RegisterMethod("organizations.members.list", orgAPI.ListMembers)
	r.handler.RegisterMethod("organizations.members.add", orgAPI.AddMember)
	r.handler.RegisterMethod("organizations.members.remove", orgAPI.RemoveMember)
	r.handler.RegisterMethod("organizations.members.set_role", orgAPI.SetMemberRole)
	r.handler.RegisterMethod("organizations.feed", orgAPI.Feed)

	communityAPI := community.NewAPI(repo, contentSvc, deps.Notifier)
	r.handler.RegisterMethod("community.get", communityAPI.Get)
	r.handler.RegisterMethod("community.create", communityAPI.Create)
	r.handler.RegisterMethod("community.update", communityAPI.Update)
	r.handler.RegisterMethod("community.delete", communityAPI.Delete)
	r.handler.RegisterMethod("community.join", communityAPI.Join)
	r.handler.RegisterMethod("community.leave", communityAPI.Leave)
	r.handler.RegisterMethod("community.feed", communityAPI.Feed)
	r.handler.RegisterMethod("community.members.list", communityAPI.ListMembers)
	r.handler.RegisterMethod("community.members.add", communityAPI.AddMember)
	r.handler.RegisterMethod("community.members.remove", communityAPI.RemoveMember)
	r.handler.RegisterMethod("community.members.set_role", communityAPI.SetMemberRole)
	r.handler.RegisterMethod("community.members.approve", communityAPI.ApproveMember)
	r.handler.RegisterMethod("communities.list", communityAPI.List)

	postsAPI := posts.NewAPI(repo, deps.Notifier)
	r.handler.RegisterMethod("posts.get", postsAPI.Get)
	r.handler.RegisterMethod("posts.create", postsAPI.Create)
	r.handler.RegisterMethod("posts.update", postsAPI.Update)
	r.handler.RegisterMethod("posts.delete", postsAPI.Delete)
	r.handler.RegisterMethod("posts.save", postsAPI.Save)
	r.handler.RegisterMethod("posts.unsave", postsAPI.Unsave)
	r.handler.RegisterMethod("posts.comments.list", postsAPI.ListComments)
	r.handler.RegisterMethod("posts.comments.create", postsAPI.CreateComment)
	r.handler.RegisterMethod("posts.comments.delete", postsAPI.DeleteComment)
	r.handler.RegisterMethod("posts.poll.get", postsAPI.GetPoll)
	r.handler.RegisterMethod("posts.poll.vote", postsAPI.Vote)

	profilesAPI := profiles.NewAPI(repo, contentSvc)
	r.handler.RegisterMethod("profiles.get", profilesAPI.Get)
	r.handler.RegisterMethod("profiles.update", profilesAPI.Update)
	r.handler.RegisterMethod("profiles.saved_posts", profilesAPI.SavedPosts)
	r.handler.RegisterMethod("profiles.push.subscribe", profilesAPI.SubscribePush)
	r.handler.RegisterMethod("profiles.push.unsubscribe", profilesAPI.UnsubscribePush)

	chatAPI := chat.NewAPI(repo, deps.Notifier)
	r.handler.RegisterMethod("chat.threads.create", chatAPI.CreateThread)
	r.handler.RegisterMethod("chat.threads.get", chatAPI.GetThread)
	r.handler.RegisterMethod("chat.messages.send", chatAPI.SendMessage)
	r.handler.RegisterMethod("chat.messages.list", chatAPI.ListMessages)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	status := "OK"
	code := 200
	if err := r.db.Health(c.Request.Context()); err != nil {
		status = "DEGRADED"
		code = 503
		r.logger.Warn("Database health check failed", zap.Error(err))
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "huddle-api",
	})
}
