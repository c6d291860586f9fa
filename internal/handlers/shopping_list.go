package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "foodgram/internal/log"
	"foodgram/internal/metrics"
	"foodgram/internal/shopping"
)

// DownloadShoppingCart aggregates the caller's cart and sends it as an
// attachment. ?format= selects pdf (default), html or txt.
func DownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	if shoppingList == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Shopping list export is not configured.")
		return
	}
	userID, _ := currentUserID(r)
	ctx := r.Context()

	format, known := shoppingList.Normalize(r.URL.Query().Get("format"))
	if !known {
		metrics.RecordExport("unknown", "rejected", 0)
		writeValidationErrors(w, ValidationErrors{"format": {
			fmt.Sprintf("Unsupported format. Choose one of: %s.", strings.Join(shoppingList.Formats(), ", ")),
		}})
		return
	}

	document, err := shoppingList.Export(ctx, userID, format)
	if err != nil {
		metrics.RecordExport(format, "error", 0)
		switch {
		case errors.Is(err, gorm.ErrInvalidDB):
			writeJSONError(w, http.StatusServiceUnavailable, "The service is unavailable because no database connection is configured.")
		case errors.Is(err, shopping.ErrMalformedQuantity), errors.Is(err, shopping.ErrDataIntegrity):
			applog.Error(ctx, "shopping cart data is inconsistent", "error", err, "userID", userID)
			writeJSONError(w, http.StatusInternalServerError, "The shopping list could not be generated because the cart contains invalid data.")
		default:
			applog.Error(ctx, "failed to export shopping list", "error", err, "userID", userID, "format", format)
			writeJSONError(w, http.StatusInternalServerError, "Unable to generate the shopping list.")
		}
		return
	}

	metrics.RecordExport(format, "success", document.Entries)
	applog.Debug(ctx, "shopping list exported", "userID", userID, "format", format, "entries", document.Entries, "bytes", len(document.Body))

	w.Header().Set("Content-Type", document.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(document.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(document.Body); err != nil {
		applog.Error(ctx, "failed to write shopping list", "error", err, "userID", userID)
	}
}
