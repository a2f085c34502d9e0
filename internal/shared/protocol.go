package shared

// RecordInput is the request body for create and update.
type RecordInput struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags,omitempty"`
}

// RecordOut is a stored record as returned by the API.
type RecordOut struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags"`
}

// ErrorResponse is the body of every non-2xx response. Detail is a string
// for most errors; validation failures carry a list of problems.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AdminResponse struct {
	Ok  bool   `json:"ok"`
	Msg string `json:"msg"`
}

const (
	HeaderAPIKey      = "X-API-Key"
	HeaderProcessTime = "X-Process-Time"
	HeaderRequestID   = "X-Request-Id"
)

// Problem is one entry of a validation failure's detail list.
type Problem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}
