package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤（在任何來源查詢前回報）
type ValidationError struct {
	Field   string
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.message)
	}
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// NewFieldValidationError 創建帶欄位名稱的驗證錯誤
func NewFieldValidationError(field, message string) error {
	return &ValidationError{Field: field, message: message}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError 表示指定的資源不存在
type NotFoundError struct {
	Resource string
	IDs      []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.IDs)
}

// NewNotFoundError 創建資源不存在錯誤
func NewNotFoundError(resource string, ids ...string) error {
	return &NotFoundError{Resource: resource, IDs: ids}
}

// IsNotFoundError 檢查是否為資源不存在錯誤
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrConflict 由儲存層在唯一性約束衝突時回傳
var ErrConflict = errors.New("uniqueness conflict")

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeConflict         = "CONFLICT"           // 409
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)

	// 業務錯誤
	ErrCacheFull = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheMiss = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
)

// ToErrorResponse 依錯誤類型決定 HTTP 狀態碼與回應內容
func ToErrorResponse(err error, debug bool) (int, ErrorResponse) {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *CustomError
	)
	resp := ErrorResponse{}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp.Code = ErrCodeInvalidRequest
		resp.Message = ve.Error()
	case errors.As(err, &nf):
		status = http.StatusNotFound
		resp.Code = ErrCodeNotFound
		resp.Message = nf.Error()
	case errors.As(err, &ce):
		status = ce.Status
		resp.Code = ce.Code
		resp.Message = ce.Message
	default:
		resp.Code = ErrCodeInternalError
		resp.Message = ErrInternalError.Message
	}

	if debug && status >= http.StatusInternalServerError && err != nil {
		resp.Details = err.Error()
	}
	return status, resp
}
