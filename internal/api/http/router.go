package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AllowOrigins []string
}

type Controllers struct {
	Users         *UserController
	Topics        *TopicController
	Sessions      *SessionController
	Moderation    *ModerationController
	Votes         *VoteController
	Notifications *NotificationController
	Reports       *ReportController
	Sockets       *SocketController
}

func SetupRouter(cfg RouterConfig, resolver PrincipalResolver, c Controllers) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = cfg.AllowOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Browsers cannot set headers on a websocket handshake; sockets take ?token=.
	if c.Sockets != nil {
		api.GET("/sessions/:id/ws", c.Sockets.SessionSocket)
		api.GET("/notifications/ws", c.Sockets.NotificationSocket)
	}

	secured := api.Group("", AuthMiddleware(resolver))

	if c.Users != nil {
		users := secured.Group("/users")
		users.GET("/me", c.Users.Me)
		users.GET("/:userID", c.Users.GetUser)
	}
	if c.Reports != nil {
		secured.GET("/users/:userID/profile", c.Reports.Profile)
	}

	if c.Topics != nil {
		topics := secured.Group("/topics")
		topics.GET("", c.Topics.ListTopics)
		topics.POST("", c.Topics.CreateTopic)
		topics.GET("/:id", c.Topics.GetTopic)
	}

	sessions := secured.Group("/sessions")
	if c.Sessions != nil {
		sessions.GET("", c.Sessions.ListSessions)
		sessions.POST("", c.Sessions.CreateSession)
		sessions.GET("/:id", c.Sessions.GetSession)
		sessions.GET("/:id/status", c.Sessions.Status)
		sessions.POST("/:id/join", c.Sessions.Join)
		sessions.POST("/:id/leave", c.Sessions.Leave)
		sessions.GET("/:id/participants", c.Sessions.Participants)
		sessions.GET("/:id/messages", c.Sessions.Messages)

		sessions.POST("/:id/start-joining-window", c.Sessions.StartJoiningWindow)
		sessions.POST("/:id/close-joining-window", c.Sessions.CloseJoiningWindow)
		sessions.POST("/:id/start-debate", c.Sessions.StartDebate)
		sessions.POST("/:id/end-debate-start-voting", c.Sessions.EndDebateAndStartVoting)
		sessions.POST("/:id/finish-voting", c.Sessions.FinishVoting)
		sessions.POST("/:id/cancel", c.Sessions.Cancel)
		sessions.POST("/:id/force-phase-transition", c.Sessions.ForcePhaseTransition)
	}

	if c.Moderation != nil {
		sessions.GET("/:id/moderation-actions", c.Moderation.ListActions)
		sessions.POST("/:id/participants/:userID/mute", c.Moderation.Mute)
		sessions.POST("/:id/participants/:userID/unmute", c.Moderation.Unmute)
		sessions.POST("/:id/participants/:userID/warn", c.Moderation.Warn)
		sessions.POST("/:id/participants/:userID/remove", c.Moderation.Remove)
	}

	if c.Votes != nil {
		sessions.POST("/:id/votes", c.Votes.CastVote)
		sessions.GET("/:id/results", c.Votes.Results)
	}

	if c.Reports != nil {
		sessions.GET("/:id/transcript", c.Reports.Transcript)
		sessions.GET("/:id/analytics", c.Reports.Analytics)
	}

	if c.Notifications != nil {
		notifications := secured.Group("/notifications")
		notifications.GET("", c.Notifications.List)
		notifications.GET("/unread-count", c.Notifications.UnreadCount)
		notifications.POST("/mark-read", c.Notifications.MarkRead)
	}

	return router, nil
}
