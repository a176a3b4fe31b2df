// Package api exposes the HTTP and WebSocket surface: auth endpoints,
// project/task/activity CRUD delegating to the board pipeline, and the
// live-channel attach endpoint.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/realtime"
	"taskboard-api/storage"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store storage.Store, board Board, auth *Auth, registry *realtime.Registry, logger *log.Logger) {
	g := e.Group("/api")
	g.POST("/auth/signup", signup(store, auth))
	g.POST("/auth/login", login(store, auth))
	g.GET("/auth/me", getMe(store, auth))

	g.GET("/projects", listProjects(board, auth))
	g.POST("/projects", createProject(board, auth))
	g.GET("/projects/:project_id", getProject(board, auth))
	g.PUT("/projects/:project_id", updateProject(board, auth))
	g.DELETE("/projects/:project_id", deleteProject(board, auth))

	g.GET("/projects/:project_id/tasks", listTasks(board, auth))
	g.POST("/projects/:project_id/tasks", createTask(board, auth))
	g.PUT("/projects/:project_id/tasks/:task_id", updateTask(board, auth))
	g.DELETE("/projects/:project_id/tasks/:task_id", deleteTask(board, auth))

	g.GET("/projects/:project_id/activities", listActivities(board, auth))

	g.GET("/ws/:user_id", attachWS(registry, logger))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes.
// Anything unrecognized is an internal persistence failure.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return c.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return c.String(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		return c.String(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalid):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func signup(store storage.Store, auth *Auth) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req signupRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Email == "" || req.Name == "" || req.Password == "" {
			return c.String(http.StatusBadRequest, "email, name and password are required")
		}

		var existing domain.User
		err := store.FindOne(ctx, storage.Users, storage.Filter{"email": req.Email}, &existing)
		if err == nil {
			return c.String(http.StatusConflict, "email already registered")
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return writeError(c, err)
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			return writeError(c, err)
		}
		user := domain.User{
			ID:           uuid.NewString(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.Insert(ctx, storage.Users, user); err != nil {
			return writeError(c, err)
		}

		token, err := auth.IssueToken(user.ID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
	}
}

func login(store storage.Store, auth *Auth) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		var user domain.User
		err := store.FindOne(ctx, storage.Users, storage.Filter{"email": req.Email}, &user)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !CheckPassword(user.PasswordHash, req.Password)) {
			return c.String(http.StatusUnauthorized, "invalid email or password")
		}
		if err != nil {
			return writeError(c, err)
		}

		token, err := auth.IssueToken(user.ID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
	}
}

func getMe(store storage.Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var user domain.User
		if err := store.FindOne(ctx, storage.Users, storage.Filter{"id": userID}, &user); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.String(http.StatusUnauthorized, "user not found")
			}
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

func listProjects(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		projects, err := board.ListProjects(c.Request().Context(), userID)
		if err != nil {
			return writeError(c, err)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		return c.JSON(http.StatusOK, projects)
	}
}

func createProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var in domain.ProjectInput
		if err := c.Bind(&in); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if in.Name == "" {
			return c.String(http.StatusBadRequest, "name is required")
		}
		project, err := board.CreateProject(c.Request().Context(), userID, in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func getProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		project, err := board.GetProject(c.Request().Context(), userID, c.Param("project_id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func updateProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch domain.ProjectPatch
		if err := c.Bind(&patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		project, err := board.UpdateProject(c.Request().Context(), userID, c.Param("project_id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func deleteProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := board.DeleteProject(c.Request().Context(), userID, c.Param("project_id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "project deleted"})
	}
}

func listTasks(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := board.ListTasks(c.Request().Context(), userID, c.Param("project_id"))
		if err != nil {
			return writeError(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var in domain.TaskInput
		if err := c.Bind(&in); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if in.Title == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}
		task, err := board.CreateTask(c.Request().Context(), userID, c.Param("project_id"), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch domain.TaskPatch
		if err := c.Bind(&patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := board.UpdateTask(c.Request().Context(), userID, c.Param("project_id"), c.Param("task_id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := board.DeleteTask(c.Request().Context(), userID, c.Param("project_id"), c.Param("task_id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "task deleted"})
	}
}

func listActivities(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		activities, err := board.ListActivities(c.Request().Context(), userID, c.Param("project_id"))
		if err != nil {
			return writeError(c, err)
		}
		if activities == nil {
			activities = []domain.Activity{}
		}
		return c.JSON(http.StatusOK, activities)
	}
}
