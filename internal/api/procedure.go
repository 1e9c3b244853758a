package api

import (
	"context"
	"io"
	"net/http"

	apimiddleware "github.com/cpa03/basefly-sub001/internal/api/middleware"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/metrics"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// inputParser gates procedures on their input schema
type inputParser struct {
	validator *schema.Validator
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// readInput returns the raw procedure input. Queries carry it JSON-encoded
// in the "input" query parameter; mutations send it as the request body.
func readInput(c echo.Context) ([]byte, error) {
	if c.Request().Method == http.MethodGet {
		return []byte(c.QueryParam("input")), nil
	}
	if c.Request().Body == nil {
		return nil, nil
	}
	return io.ReadAll(c.Request().Body)
}

// parse validates the procedure input against name. When ok is false the
// response has already been written and err is what the handler returns.
func (p *inputParser) parse(c echo.Context, name schema.Name) (value any, ok bool, err error) {
	raw, err := readInput(c)
	if err != nil {
		return nil, false, ErrorBadRequest(c, "Invalid request body")
	}

	result, err := p.validator.Validate(name, raw)
	if err != nil {
		logging.WithRequestID(c.Request().Context(), p.logger).Error("validate input", zap.Error(err))
		return nil, false, ErrorInternal(c, "Failed to validate input")
	}

	if !result.Valid {
		p.metrics.RecordValidationFailure(string(name))
		logging.WithRequestID(c.Request().Context(), p.logger).Debug("input rejected",
			zap.String("schema", string(name)),
			zap.Int("violations", len(result.Errors)),
		)
		return nil, false, ErrorValidation(c, result)
	}

	return result.Value, true, nil
}

// audit records an audit event; failures are logged, never returned
func audit(ctx context.Context, c echo.Context, logger *zap.Logger, sink AuditLogger, event *types.AuditEvent) {
	if sink == nil {
		return
	}

	event.RequestID = apimiddleware.GetRequestID(c)
	if ip := c.RealIP(); ip != "" {
		event.IPAddress = &ip
	}
	if ua := c.Request().UserAgent(); ua != "" {
		event.UserAgent = &ua
	}

	if err := sink.Log(ctx, event); err != nil {
		logging.WithRequestID(ctx, logger).Warn("write audit event",
			zap.String("action", event.Action),
			zap.Error(err),
		)
	}
}
