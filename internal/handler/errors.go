package handler

import (
	"errors"

	"steamboard-api/internal/service"
	"steamboard-api/internal/steam"
	"steamboard-api/pkg/apierror"
)

// asAPIError maps service sentinels and classified Steam failures onto the
// structured error responses the UI understands.
func asAPIError(err error) error {
	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrColumnNotFound):
		return apierror.NotFound(err.Error())
	case errors.Is(err, service.ErrColumnExists),
		errors.Is(err, service.ErrRefreshInProgress),
		errors.Is(err, service.ErrDetailInFlight):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidImport):
		return apierror.ValidationError(err.Error())
	}

	var steamErr *steam.APIError
	if errors.As(err, &steamErr) {
		switch steamErr.Category {
		case steam.CategoryAuth:
			return apierror.Unauthorized(steamErr.Message)
		case steam.CategoryRateLimited:
			return apierror.TooManyRequests(steamErr.Message)
		case steam.CategoryUpstream:
			return apierror.ServiceUnavailable(steamErr.Message)
		case steam.CategoryHTTP:
			return apierror.UpstreamStatus(steamErr.Status)
		case steam.CategoryNetwork:
			return apierror.BadGateway(steamErr.Message)
		}
	}

	return err
}
