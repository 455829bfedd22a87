package service

// 服务层错误分类，handler 据此映射 HTTP 状态码：
// ValidationError → 422，NotFoundError → 404，PermissionError → 403，
// ConflictError → 409，AuthenticationError → 401，其余一律 500

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(message string) error {
	return &NotFoundError{Message: message}
}

type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

func NewPermissionError(message string) error {
	return &PermissionError{Message: message}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(message string) error {
	return &ConflictError{Message: message}
}

type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func NewAuthenticationError(message string) error {
	return &AuthenticationError{Message: message}
}
