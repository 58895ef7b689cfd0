package reconciliation

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/cmlabs-hris/hris-attendance-go/internal/service/reconciliation")
