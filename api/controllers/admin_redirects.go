package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	"github.com/kitchenartsandletters/damaged-books-service/api/validators"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

const (
	defaultRedirectLimit = 50
	maxRedirectLimit     = 250
)

type redirectStore interface {
	ListRedirects(ctx context.Context, limit int) ([]shopify.Redirect, error)
	FindRedirectByPath(ctx context.Context, path string) (*shopify.Redirect, error)
	CreateRedirect(ctx context.Context, path, target string) (*shopify.Redirect, error)
	DeleteRedirect(ctx context.Context, redirectID int64) error
}

type createRedirectRequest struct {
	Path   string `json:"path" validate:"required,startswith=/"`
	Target string `json:"target" validate:"required"`
}

// AdminListRedirects proxies the upstream redirect list. An optional path
// query narrows it to an exact match.
func AdminListRedirects(store redirectStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redirect store unavailable"))
			return
		}

		if path := strings.TrimSpace(r.URL.Query().Get("path")); path != "" {
			redirect, err := store.FindRedirectByPath(r.Context(), path)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if redirect == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "redirect not found"))
				return
			}
			responses.WriteSuccess(w, map[string]any{"redirects": []shopify.Redirect{*redirect}})
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultRedirectLimit, 1, maxRedirectLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redirects, err := store.ListRedirects(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"redirects": redirects})
	}
}

// AdminCreateRedirect creates an upstream redirect.
func AdminCreateRedirect(store redirectStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redirect store unavailable"))
			return
		}

		var req createRedirectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if existing, err := store.FindRedirectByPath(r.Context(), req.Path); err == nil && existing != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeConflict, "redirect already exists for path"))
			return
		}

		redirect, err := store.CreateRedirect(r.Context(), req.Path, req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, redirect)
	}
}

// AdminDeleteRedirect deletes an upstream redirect by id.
func AdminDeleteRedirect(store redirectStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redirect store unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "redirectId"))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid redirect id"))
			return
		}

		if err := store.DeleteRedirect(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}
