package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/adsync/internal/app/domain"
	appservices "github.com/fr0stylo/adsync/internal/app/services"
	"github.com/fr0stylo/adsync/internal/auth"
)

// Runner starts sync runs.
type Runner interface {
	RunAll(ctx context.Context, opts appservices.RunOptions) (domain.RunResult, error)
	RunOne(ctx context.Context, sel appservices.BrandSelector, opts appservices.RunOptions) (domain.RunResult, error)
}

// Authenticator verifies the Authorization header of trigger requests.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (auth.Claims, error)
}

// SyncRoutes registers the authenticated run triggers.
type SyncRoutes struct {
	runner Runner
	auth   Authenticator
	log    *slog.Logger
}

func NewSyncRoutes(runner Runner, authenticator Authenticator, log *slog.Logger) *SyncRoutes {
	if log == nil {
		log = slog.Default()
	}
	return &SyncRoutes{runner: runner, auth: authenticator, log: log}
}

func (r *SyncRoutes) RegisterRoutes(s *echo.Echo) {
	s.POST("/run", r.handleRun, r.requireBearer)
	s.POST("/run-page", r.handleRunPage, r.requireBearer)
}

type runResponse struct {
	Status string `json:"status"`
	domain.RunResult
}

type runPageResponse struct {
	runResponse
	BrandID string `json:"brand_id"`
	PageID  string `json:"page_id"`
}

type runPageRequest struct {
	BrandID string `json:"brand_id" form:"brand_id"`
	PageID  string `json:"page_id" form:"page_id"`
	DryRun  bool   `json:"dry_run" form:"dry_run"`
}

func (r *SyncRoutes) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := r.auth.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			code := domain.AuthInvalidToken
			var authErr *domain.AuthError
			if errors.As(err, &authErr) {
				code = authErr.Code
			}
			r.log.WarnContext(c.Request().Context(), "trigger rejected", "code", code, "error", err)
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": code})
		}
		c.Set("caller", claims.Subject)
		return next(c)
	}
}

func (r *SyncRoutes) handleRun(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := r.runner.RunAll(ctx, appservices.RunOptions{DryRun: queryBool(c, "dry_run")})
	if err != nil {
		r.log.ErrorContext(ctx, "run failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, runResponse{Status: "ok", RunResult: result})
}

func (r *SyncRoutes) handleRunPage(c echo.Context) error {
	ctx := c.Request().Context()

	var req runPageRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
	}
	if req.BrandID == "" {
		req.BrandID = c.QueryParam("brand_id")
	}
	if req.PageID == "" {
		req.PageID = c.QueryParam("page_id")
	}
	req.BrandID = strings.TrimSpace(req.BrandID)
	req.PageID = strings.TrimSpace(req.PageID)

	sel := appservices.BrandSelector{BrandID: req.BrandID, PageID: req.PageID}
	opts := appservices.RunOptions{DryRun: req.DryRun || queryBool(c, "dry_run")}
	result, err := r.runner.RunOne(ctx, sel, opts)
	switch {
	case errors.Is(err, appservices.ErrInvalidSelector):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrBrandNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		r.log.ErrorContext(ctx, "run-page failed", "brand_id", req.BrandID, "page_id", req.PageID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	resp := runPageResponse{
		runResponse: runResponse{Status: "ok", RunResult: result},
		BrandID:     req.BrandID,
		PageID:      req.PageID,
	}
	if len(result.Brands) == 1 {
		resp.BrandID = result.Brands[0].BrandID
		resp.PageID = result.Brands[0].PageID
	}
	return c.JSON(http.StatusOK, resp)
}

func queryBool(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.QueryParam(name)))
	return err == nil && v
}
