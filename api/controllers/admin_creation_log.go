package controllers

import (
	"net/http"

	"github.com/kitchenartsandletters/damaged-books-service/api/responses"
	"github.com/kitchenartsandletters/damaged-books-service/api/validators"
	"github.com/kitchenartsandletters/damaged-books-service/internal/creationlog"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

// AdminAppendCreationLog records a damaged product creation attempt.
func AdminAppendCreationLog(writer creationlog.Writer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if writer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "creation log unavailable"))
			return
		}

		var entry creationlog.Entry
		if err := validators.DecodeJSONBody(r, &entry); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := writer.Append(r.Context(), entry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":     row.ID.String(),
			"status": row.Status,
		})
	}
}
