package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/appgrove/ingest-api/internal/service"
)

// mapServiceError converts a service-layer error into the huma status
// error the client should see. Unknown errors surface as 500 without
// leaking internals into the message.
func mapServiceError(err error) error {
	var nfe *service.NotFoundError
	if errors.As(err, &nfe) {
		return huma.Error404NotFound(nfe.Error())
	}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return huma.Error400BadRequest(ve.Error())
	}
	var se *service.StoreError
	if errors.As(err, &se) {
		return huma.Error500InternalServerError("storage operation failed", err)
	}
	return huma.Error500InternalServerError("operation failed", err)
}
