package quota

// QuotaError 配额类错误，携带 HTTP 等效状态码
type QuotaError struct {
	Status  int
	Message string
}

func (e *QuotaError) Error() string {
	return e.Message
}

var (
	// ErrRateLimited IP 限流触发
	ErrRateLimited = &QuotaError{Status: 429, Message: "too many requests"}
	// ErrQuotaExceeded token 预算耗尽
	ErrQuotaExceeded = &QuotaError{Status: 429, Message: "quota exceeded"}
)
