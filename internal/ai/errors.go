package ai

import "fmt"

// ErrorKind categorizes API rejections for user-facing reporting.
type ErrorKind string

const (
	KindAuth      ErrorKind = "invalid-key"
	KindRateLimit ErrorKind = "rate-limited"
	KindForbidden ErrorKind = "forbidden-model"
	KindOther     ErrorKind = "provider-error"
)

// APIError is a classified provider rejection. Auth and rate-limit errors
// are fatal to the current operation and never auto-retried.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	hint := remediationHints[e.Kind]
	if hint == "" {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", hint, e.Status, e.Message)
}

var remediationHints = map[ErrorKind]string{
	KindAuth:      "API 키가 유효하지 않습니다. 설정 파일의 api_key를 확인하세요",
	KindRateLimit: "API 요청 한도를 초과했습니다. 잠시 후 다시 시도하거나 요금제를 확인하세요",
	KindForbidden: "API 키에 해당 모델 접근 권한이 없습니다. 공급자 대시보드에서 권한을 확인하세요",
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch status {
	case 401:
		return KindAuth
	case 429:
		return KindRateLimit
	case 403:
		return KindForbidden
	default:
		return KindOther
	}
}
