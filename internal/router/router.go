package router

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// Deps holds everything the HTTP layer needs.
type Deps struct {
	Auth     *services.AuthService
	Sessions middleware.Authenticator
	Tasks    *services.TaskService
	Teams    *services.TeamService
	Users    *services.UserService

	SessionStore sessions.Store
	Cookie       sessions.Options
	Log          *zap.Logger
}

// CookieOptions returns the options of the refresh token cookie.
func CookieOptions(cfg *config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/api/auth",
		MaxAge:   int(cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// NewSessionStore builds the session store holding the refresh token cookie.
func NewSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		s, err := redisStore.NewStore(
			10,
			"tcp",
			net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			"",
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = s
	default:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}
	store.Options(CookieOptions(cfg))
	return store, nil
}

// New builds the gin engine with every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Log.Named("http")),
		middleware.Recovery(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.Response{Success: true, Message: "Team Task API is running"})
	})

	authHandler := handlers.NewAuthHandler(d.Auth, d.Cookie)
	taskHandler := handlers.NewTaskHandler(d.Tasks)
	teamHandler := handlers.NewTeamHandler(d.Teams)
	userHandler := handlers.NewUserHandler(d.Users)

	requireAuth := middleware.RequireAuth(d.Sessions)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	id := middleware.RequireIDParams("id")
	memberIDs := middleware.RequireIDParams("id", "userId")

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(sessions.Sessions(constants.SessionCookieName, d.SessionStore))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.PUT("/change-password", requireAuth, authHandler.ChangePassword)
			auth.GET("/profile", requireAuth, authHandler.GetProfile)
			auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
		}

		api.GET("/teams/public", teamHandler.ListPublic)

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/my-tasks", taskHandler.MyTasks)
			tasks.GET("/stats", taskHandler.Stats)
			tasks.GET("/:id", id, taskHandler.GetTask)
			tasks.PUT("/:id", id, taskHandler.UpdateTask)
			tasks.DELETE("/:id", id, taskHandler.DeleteTask)
			tasks.PUT("/:id/assign", id, taskHandler.AssignTask)
		}

		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.GET("", adminOnly, teamHandler.ListTeams)
			teams.POST("", adminOnly, teamHandler.CreateTeam)
			teams.GET("/my-team", teamHandler.MyTeam)
			teams.GET("/:id", id, teamHandler.GetTeam)
			teams.PUT("/:id", adminOnly, id, teamHandler.UpdateTeam)
			teams.DELETE("/:id", adminOnly, id, teamHandler.DeleteTeam)
			teams.GET("/:id/members", id, teamHandler.ListMembers)
			teams.POST("/:id/members/:userId", staff, memberIDs, teamHandler.AddMember)
			teams.DELETE("/:id/members/:userId", staff, memberIDs, teamHandler.RemoveMember)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", staff, userHandler.ListUsers)
			users.POST("", staff, userHandler.CreateUser)
			users.GET("/team-members", staff, userHandler.TeamMembers)
			users.GET("/stats", staff, userHandler.Stats)
			users.GET("/:id", staff, id, userHandler.GetUser)
			users.PUT("/:id", adminOnly, id, userHandler.UpdateUser)
			users.DELETE("/:id", adminOnly, id, userHandler.DeleteUser)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierrors.Response{Code: apierrors.ErrCodeNotFound, Message: "Route not found"})
	})

	return r
}
