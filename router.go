package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"social-service/internal/auth"
	"social-service/internal/calls"
	"social-service/internal/config"
	"social-service/internal/functions"
	"social-service/internal/handlers"
	"social-service/internal/logging"
	"social-service/internal/middleware"
	"social-service/internal/observability"
	"social-service/internal/permissions"
	"social-service/internal/rabbitmq"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
	"social-service/internal/storage"
	"social-service/internal/telemetry"
	"social-service/internal/ws"
)

// app holds every wired component the router needs.
type app struct {
	cfg     config.Config
	tokens  *auth.Tokens
	policy  *permissions.Policy
	limiter *middleware.RateLimiter
	hub     *ws.Hub
	broker  realtime.Broker
	manager *calls.Manager
	audit   *telemetry.AuditEmitter

	chat    *handlers.ChatHandler
	group   *handlers.GroupHandler
	call    *handlers.CallHandler
	circle  *handlers.CircleHandler
	story   *handlers.StoryHandler
	reel    *handlers.ReelHandler
	live    *handlers.LiveHandler
	listing *handlers.ListingHandler
	ticket  *handlers.TicketHandler
	profile *handlers.ProfileHandler
	upload  *handlers.UploadHandler
	admin   *handlers.AdminHandler

	chatWS  *ws.ChatWebSocketHandler
	groupWS *ws.GroupWebSocketHandler
	storyWS *ws.StoryWebSocketHandler
	callWS  *ws.CallWebSocketHandler
	liveWS  *ws.LiveWebSocketHandler
}

func newApp(cfg config.Config, database *sqlx.DB, broker realtime.Broker, store *storage.Store, auditPublisher, functionsPublisher rabbitmq.Publisher) (*app, error) {
	policy, err := permissions.New()
	if err != nil {
		return nil, err
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	circleRepo := repositories.NewCircleRepo(database)
	storyRepo := repositories.NewStoryRepo(database)
	profileRepo := repositories.NewProfileRepo(database)
	liveRepo := repositories.NewLiveRepo(database)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.Service, cfg.TokenTTL)
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRouting, cfg.Service, cfg.Environment)
	manager := calls.NewManager(broker)
	access := calls.Access{Chats: chatRepo, Groups: groupRepo, Circles: circleRepo}
	hub := ws.NewHub()
	gw := ws.NewGateway(hub, tokens, broker)

	return &app{
		cfg:     cfg,
		tokens:  tokens,
		policy:  policy,
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateBurst),
		hub:     hub,
		broker:  broker,
		manager: manager,
		audit:   audit,

		chat:    handlers.NewChatHandler(chatRepo, messageRepo, broker, audit),
		group:   handlers.NewGroupHandler(groupRepo, groupMessageRepo, policy, broker, audit),
		call:    handlers.NewCallHandler(manager, access),
		circle:  handlers.NewCircleHandler(circleRepo, manager, audit),
		story:   handlers.NewStoryHandler(storyRepo, profileRepo),
		reel:    handlers.NewReelHandler(repositories.NewReelRepo(database)),
		live:    handlers.NewLiveHandler(liveRepo, broker, broker),
		listing: handlers.NewListingHandler(repositories.NewListingRepo(database)),
		ticket:  handlers.NewTicketHandler(repositories.NewTicketRepo(database), functions.NewInvoker(functionsPublisher), audit),
		profile: handlers.NewProfileHandler(profileRepo),
		upload:  handlers.NewUploadHandler(store, cfg.MaxUploadBytes),
		admin:   handlers.NewAdminHandler(repositories.NewStatsRepo(database), hub, store, manager),

		chatWS:  ws.NewChatWebSocketHandler(gw, chatRepo, messageRepo, profileRepo, cfg.TypingIdle),
		groupWS: ws.NewGroupWebSocketHandler(gw, groupRepo, groupMessageRepo, profileRepo, cfg.TypingIdle),
		storyWS: ws.NewStoryWebSocketHandler(gw, storyRepo, profileRepo),
		callWS:  ws.NewCallWebSocketHandler(gw, manager, access),
		liveWS:  ws.NewLiveWebSocketHandler(gw, liveRepo, cfg.PresenceTTL/3),
	}, nil
}

func (a *app) router() *gin.Engine {
	if a.cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(a.cfg.Service),
		logging.Middleware(),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, a.audit, a.broker, a.cfg.DebugRoutes)

	// Public object reads; uploads and deletes need a token.
	router.GET("/api/storage/:bucket/*key", a.upload.Download)

	// Websockets authenticate from the query string themselves.
	router.GET("/ws/chats/:chat_id", a.chatWS.Handle)
	router.GET("/ws/groups/:group_id", a.groupWS.Handle)
	router.GET("/ws/stories", a.storyWS.Handle)
	router.GET("/ws/calls/:call_id", a.callWS.Handle)
	router.GET("/ws/live/:stream_id", a.liveWS.Handle)

	api := router.Group("/", middleware.AuthMiddleware(a.tokens), a.limiter.Middleware())

	api.GET("/chats", a.chat.ListChats)
	api.POST("/chats/start", a.chat.StartChat)
	api.DELETE("/chats/:chat_id/me", a.chat.DeleteChatForMe)
	api.GET("/chats/:chat_id/messages", a.chat.GetChatMessages)
	api.POST("/chats/:chat_id/messages", a.chat.PostChatMessage)
	api.PATCH("/chats/:chat_id/messages/:message_id", a.chat.EditChatMessage)
	api.DELETE("/chats/:chat_id/messages/:message_id/me", a.chat.DeleteMessageForMe)
	api.DELETE("/chats/:chat_id/messages/:message_id/all", a.chat.DeleteMessageForAll)
	api.POST("/chats/:chat_id/call", a.call.StartChatCall)

	api.POST("/groups", a.group.CreateGroup)
	api.GET("/groups", a.group.ListGroups)
	api.GET("/groups/:group_id", a.group.GetGroup)
	api.PATCH("/groups/:group_id", a.group.UpdateSettings)
	api.DELETE("/groups/:group_id", a.group.Dissolve)
	api.POST("/groups/:group_id/leave", a.group.Leave)
	api.POST("/groups/:group_id/members", a.group.AddMember)
	api.DELETE("/groups/:group_id/members/:user_id", a.group.RemoveMember)
	api.PUT("/groups/:group_id/members/:user_id/role", a.group.ChangeRole)
	api.GET("/groups/:group_id/messages", a.group.GetGroupMessages)
	api.POST("/groups/:group_id/messages", a.group.PostGroupMessage)
	api.PATCH("/groups/:group_id/messages/:message_id", a.group.EditGroupMessage)
	api.DELETE("/groups/:group_id/messages/:message_id", a.group.DeleteGroupMessageForAll)
	api.POST("/groups/:group_id/call", a.call.StartGroupCall)

	api.GET("/calls/:call_id", a.call.GetCall)

	api.POST("/circles", a.circle.CreateCircle)
	api.GET("/circles", a.circle.ListCircles)
	api.GET("/circles/:circle_id", a.circle.GetCircle)
	api.POST("/circles/:circle_id/members", a.circle.Invite)
	api.PUT("/circles/:circle_id/members/:user_id", a.circle.UpdateMember)
	api.DELETE("/circles/:circle_id/members/:user_id", a.circle.RemoveMember)
	api.POST("/circles/:circle_id/posts", a.circle.CreatePost)
	api.GET("/circles/:circle_id/posts", a.circle.ListPosts)
	api.DELETE("/circles/:circle_id/posts/:post_id", a.circle.DeletePost)
	api.POST("/circles/:circle_id/call", a.circle.StartCall)

	api.POST("/stories", a.story.CreateStory)
	api.GET("/stories", a.story.Feed)
	api.POST("/stories/:story_id/view", a.story.MarkViewed)
	api.GET("/stories/:story_id/viewers", a.story.Viewers)
	api.POST("/stories/:story_id/reactions", a.story.React)
	api.DELETE("/stories/:story_id", a.story.DeleteStory)

	api.POST("/reels", a.reel.CreateReel)
	api.GET("/reels", a.reel.Feed)
	api.POST("/reels/:reel_id/like", a.reel.ToggleLike)
	api.POST("/reels/:reel_id/view", a.reel.AddView)
	api.DELETE("/reels/:reel_id", a.reel.DeleteReel)

	api.POST("/live", a.live.StartStream)
	api.GET("/live", a.live.ListLive)
	api.GET("/live/:stream_id", a.live.GetStream)
	api.POST("/live/:stream_id/end", a.live.EndStream)

	api.POST("/listings", a.listing.CreateListing)
	api.GET("/listings", a.listing.ListListings)
	api.GET("/listings/:listing_id", a.listing.GetListing)
	api.PATCH("/listings/:listing_id", a.listing.UpdateListing)
	api.POST("/listings/:listing_id/sold", a.listing.MarkSold)
	api.DELETE("/listings/:listing_id", a.listing.DeleteListing)

	api.GET("/profile", a.profile.Me)
	api.PATCH("/profile", a.profile.Update)
	api.GET("/profiles/:username", a.profile.ByUsername)

	api.POST("/support/tickets", a.ticket.CreateTicket)
	api.GET("/support/tickets", a.ticket.ListMine)

	api.POST("/api/storage/:bucket", a.upload.Upload)
	api.DELETE("/api/storage/:bucket/*key", a.upload.Delete)
	api.GET("/api/uploads/:bucket", a.upload.ListMine)

	otp := middleware.RequireOTP(a.cfg.AdminOTPSecret)
	admin := api.Group("/admin")
	admin.GET("/dashboard", middleware.RequireAdmin(a.policy, permissions.ViewDashboard), otp, a.admin.Dashboard)
	tickets := admin.Group("/tickets", middleware.RequireAdmin(a.policy, permissions.ManageTickets), otp)
	tickets.GET("", a.ticket.ListAll)
	tickets.PATCH("/:ticket_id", a.ticket.UpdateTicket)

	return router
}
