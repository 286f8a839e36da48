// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey は一意制約に違反する書き込みが行われたことを表す。
// リポジトリ層が返し、ユースケース層でAPIErrorに変換される。
var ErrDuplicateKey = errors.New("duplicate key")

// DomainError はドメインモデルの不変条件違反を表す。
type DomainError struct {
	Message string
}

// NewDomainError はDomainErrorを生成する。
func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Error はerrorインターフェースを実装する。
func (e *DomainError) Error() string {
	return e.Message
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, location, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLoginRequirement     = "LOGIN_REQUIREMENT"
	ErrCodePasswordRequirement  = "PASSWORD_REQUIREMENT"
	ErrCodeUserAlreadyExists    = "USER_ALREADY_EXISTS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeWrongPassword        = "WRONG_PASSWORD"
	ErrCodeUserLocation         = "USER_LOCATION"
	ErrCodeLocationNotFound     = "LOCATION_NOT_FOUND"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeWeatherProviderError = "WEATHER_PROVIDER_ERROR"
	ErrCodeSessionStoreError    = "SESSION_STORE_ERROR"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// AsAPIError はerrチェーンからAPIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewLoginRequirementError はログイン名が要件を満たさない場合のエラーを生成する。
func NewLoginRequirementError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequirement,
		Message:  "Login must be at least 3 characters long, with only Latin letters, digits and special character(!@#$%^&*).",
		Category: "validation",
		Action:   "Choose a different login.",
	}
}

// NewPasswordRequirementError はパスワードが要件を満たさない場合のエラーを生成する。
func NewPasswordRequirementError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordRequirement,
		Message:  "Password must be at least 8 characters long, with only Latin letters and at least one digit or special character(!@#$%^&*).",
		Category: "validation",
		Action:   "Choose a stronger password.",
	}
}

// NewUserAlreadyExistsError はログイン名が既に使われている場合のエラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "User with this login already exists",
		Category: "auth",
		Action:   "Log in or choose a different login.",
	}
}

// NewUserNotFoundByLoginError はログイン名でユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundByLoginError(login string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("User with login %q not found", login),
		Category: "auth",
		Action:   "Check the login or register a new account.",
	}
}

// NewUserNotFoundByIDError はIDでユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundByIDError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("User with id %q not found", userID),
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewWrongPasswordError はパスワードが一致しない場合のエラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongPassword,
		Message:  "Wrong password",
		Category: "auth",
		Action:   "Check the password and try again.",
	}
}

// NewUserLocationError はユーザーの保存済み地点に関するドメインエラーを
// APIErrorに変換する。
func NewUserLocationError(cause *DomainError) *APIError {
	return &APIError{
		Code:     ErrCodeUserLocation,
		Message:  cause.Message,
		Category: "location",
		Action:   "Refresh the list of saved locations.",
	}
}

// NewLocationNotFoundError は座標に対応する地点が存在しない場合のエラーを生成する。
func NewLocationNotFoundError(coordinates Coordinates) *APIError {
	return &APIError{
		Code:     ErrCodeLocationNotFound,
		Message:  fmt.Sprintf("Location with coordinates %s not found", coordinates),
		Category: "location",
		Action:   "Refresh the list of saved locations.",
	}
}

// NewSessionNotFoundError はセッションが存在しないか期限切れの場合のエラーを生成する。
func NewSessionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  "Session not found or expired",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewWeatherProviderError は天気プロバイダーの呼び出しに失敗した場合のエラーを生成する。
func NewWeatherProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeWeatherProviderError,
		Message:  "Weather provider is unavailable",
		Category: "system",
		Action:   "Try again later.",
	}
}

// NewSessionStoreError はセッションストアの操作に失敗した場合のエラーを生成する。
func NewSessionStoreError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionStoreError,
		Message:  "Session store is unavailable",
		Category: "system",
		Action:   "Try again later.",
	}
}

// NewInvalidRequestError はリクエストの形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request parameters.",
	}
}

// NewUnauthorizedError はセッションCookieが無い場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Log in to continue.",
	}
}

// NewInternalError は予期しないエラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Try again later.",
	}
}
