package service

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

// endSpan closes span, marking it failed only for server-side errors.
func endSpan(span trace.Span, err error) {
	if err != nil {
		appErr := appErrors.FromError(err)
		span.RecordError(err)
		if appErr.Status >= 500 {
			span.SetStatus(codes.Error, appErr.Message)
		}
	}
	span.End()
}
