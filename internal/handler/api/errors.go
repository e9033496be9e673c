package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"StockCharts/internal/domain/models"
	xhttp "StockCharts/pkg/http"
)

// toAppError maps use case failures onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var ce *models.ChartError
	if errors.As(err, &ce) {
		code := "ERR_" + strings.ToUpper(string(ce.Kind))
		status := http.StatusBadRequest
		switch ce.Kind {
		case models.KindNoData:
			status = http.StatusNotFound
		case models.KindEmptyRange:
			status = http.StatusUnprocessableEntity
		}
		return xhttp.NewAppError(code, "", ce.Error(), status).WithError(ce.Err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("upstream provider timed out").WithError(err)
	case errors.Is(err, context.Canceled):
		return xhttp.GatewayTimeoutError("request cancelled").WithError(err)
	default:
		return xhttp.BadGatewayError("price history provider unavailable").WithError(err)
	}
}
