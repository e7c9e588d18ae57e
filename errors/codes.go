package errors

// ErrorCode identifies the application-level error category. The numeric
// value is stable and exposed in API responses; do not renumber.
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_PERMISSION_DENIED ErrorCode = 1003
	ErrorCode_UNAUTHENTICATED   ErrorCode = 1004
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1005
	ErrorCode_FORBIDDEN         ErrorCode = 1006

	// Meeting
	ErrorCode_MEETING_NOT_FOUND        ErrorCode = 2000
	ErrorCode_MEETING_NOT_ACTIVE       ErrorCode = 2001
	ErrorCode_MEETING_COMPLETED        ErrorCode = 2002
	ErrorCode_MEETING_CREATION_FAILED  ErrorCode = 2003
	ErrorCode_MEETING_NO_PARTICIPANTS  ErrorCode = 2004
	ErrorCode_TURN_IN_PROGRESS         ErrorCode = 2010
	ErrorCode_TURN_FAILED              ErrorCode = 2011
	ErrorCode_MINUTES_NOT_READY        ErrorCode = 2020
	ErrorCode_MINUTES_GENERATION_FAILED ErrorCode = 2021

	// AI
	ErrorCode_AI_GENERATION_FAILED     ErrorCode = 3000
	ErrorCode_AI_SERVICE_UNAVAILABLE   ErrorCode = 3001
	ErrorCode_AI_DECISION_PARSE_FAILED ErrorCode = 3002
	ErrorCode_KNOWLEDGE_SEARCH_FAILED  ErrorCode = 3003

	// Integration
	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = 4000
	ErrorCode_INTEGRATION_CACHE_FAILED   ErrorCode = 4001

	// Database
	ErrorCode_DB_QUERY_FAILED       ErrorCode = 5000
	ErrorCode_DB_TRANSACTION_FAILED ErrorCode = 5001
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                    "OK",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_PERMISSION_DENIED:          "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:            "UNAUTHENTICATED",
	ErrorCode_INVALID_PAYLOAD:            "INVALID_PAYLOAD",
	ErrorCode_FORBIDDEN:                  "FORBIDDEN",
	ErrorCode_MEETING_NOT_FOUND:          "MEETING_NOT_FOUND",
	ErrorCode_MEETING_NOT_ACTIVE:         "MEETING_NOT_ACTIVE",
	ErrorCode_MEETING_COMPLETED:          "MEETING_COMPLETED",
	ErrorCode_MEETING_CREATION_FAILED:    "MEETING_CREATION_FAILED",
	ErrorCode_MEETING_NO_PARTICIPANTS:    "MEETING_NO_PARTICIPANTS",
	ErrorCode_TURN_IN_PROGRESS:           "TURN_IN_PROGRESS",
	ErrorCode_TURN_FAILED:                "TURN_FAILED",
	ErrorCode_MINUTES_NOT_READY:          "MINUTES_NOT_READY",
	ErrorCode_MINUTES_GENERATION_FAILED:  "MINUTES_GENERATION_FAILED",
	ErrorCode_AI_GENERATION_FAILED:       "AI_GENERATION_FAILED",
	ErrorCode_AI_SERVICE_UNAVAILABLE:     "AI_SERVICE_UNAVAILABLE",
	ErrorCode_AI_DECISION_PARSE_FAILED:   "AI_DECISION_PARSE_FAILED",
	ErrorCode_KNOWLEDGE_SEARCH_FAILED:    "KNOWLEDGE_SEARCH_FAILED",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:   "INTEGRATION_CACHE_FAILED",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
	ErrorCode_DB_TRANSACTION_FAILED:      "DB_TRANSACTION_FAILED",
}

// String returns the symbolic name for the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
