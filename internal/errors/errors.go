package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrNotSignedIn        = &AppError{Code: "AUTH_001", Message: "not signed in"}
	ErrInvalidCredentials = &AppError{Code: "AUTH_002", Message: "invalid email or password"}
	ErrSessionExpired     = &AppError{Code: "AUTH_003", Message: "session expired"}

	ErrBackendUnavailable = &AppError{Code: "BACKEND_001", Message: "backend unavailable"}
	ErrBackendRejected    = &AppError{Code: "BACKEND_002", Message: "backend rejected request"}
	ErrRateLimited        = &AppError{Code: "BACKEND_003", Message: "rate limit exceeded"}

	ErrUnsupportedLanguage = &AppError{Code: "I18N_001", Message: "unsupported language code"}
	ErrUnknownCurrency     = &AppError{Code: "RATES_001", Message: "unknown currency code"}

	ErrNoDocuments       = &AppError{Code: "ANALYSIS_001", Message: "no documents to analyze"}
	ErrEmptyQuestion     = &AppError{Code: "ANALYSIS_002", Message: "question must not be empty"}
	ErrNoAnalysesLeft    = &AppError{Code: "ANALYSIS_003", Message: "analysis limit reached"}
	ErrNothingToSave     = &AppError{Code: "ANALYSIS_004", Message: "no analysis to save"}
	ErrEngineUnavailable = &AppError{Code: "ANALYSIS_005", Message: "analysis engine unavailable"}

	ErrPickCanceled       = &AppError{Code: "DOC_001", Message: "selection canceled"}
	ErrUnsupportedDocKind = &AppError{Code: "DOC_002", Message: "unsupported document type"}
	ErrCaptureUnavailable = &AppError{Code: "DOC_003", Message: "camera capture unavailable"}

	ErrExportFailed = &AppError{Code: "EXPORT_001", Message: "export failed"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
