package common

const (
	FrontGate = "FrontGate"

	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	ContentTypePlain    = "text/plain"
	ContentTypeJSON     = "application/json"

	EventsEndpoint    = "events"
	AuthorizeEndpoint = "authorize"
	ValidateEndpoint  = "validate"
	HealthEndpoint    = "health"
	MetricsEndpoint   = "metrics"

	// review link query parameters, read by the operator frontend
	ParamFaceID    = "face_id"
	ParamObjectKey = "objectkey"
)
