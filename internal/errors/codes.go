package errors

// Error code constants returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map messages from these codes.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email or password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthWeakPassword       = "AUTH_WEAK_PASSWORD"
	AuthAccountInactive    = "AUTH_ACCOUNT_INACTIVE"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationTooLong       = "VALIDATION_TOO_LONG"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Company (COMPANY_) ====================
	CompanyNotFound      = "COMPANY_NOT_FOUND"
	CompanyLicenseExists = "COMPANY_LICENSE_EXISTS" // trade license already registered
	CompanySuspended     = "COMPANY_SUSPENDED"

	// ==================== Documents (DOCUMENT_) ====================
	DocumentNotFound    = "DOCUMENT_NOT_FOUND"
	DocumentFileMissing = "DOCUMENT_FILE_MISSING" // stored file reference unknown to storage
	DocumentInvalidType = "DOCUMENT_INVALID_TYPE"
	DocumentInvalidDate = "DOCUMENT_INVALID_DATE"

	// ==================== Compliance (COMPLIANCE_) ====================
	ComplianceRuleNotFound   = "COMPLIANCE_RULE_NOT_FOUND"
	ComplianceRecordNotFound = "COMPLIANCE_RECORD_NOT_FOUND"
	ComplianceInvalidStatus  = "COMPLIANCE_INVALID_STATUS"
	ComplianceFutureCheck    = "COMPLIANCE_FUTURE_CHECK_DATE"
	ComplianceScanRunning    = "COMPLIANCE_SCAN_RUNNING"

	// ==================== Reports (REPORT_) ====================
	ReportInvalidRange = "REPORT_INVALID_RANGE"

	// ==================== Notifications (NOTIFICATION_) ====================
	NotificationNotFound = "NOTIFICATION_NOT_FOUND"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadNoFile          = "UPLOAD_NO_FILE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Rate limiting (RATE_) ====================
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API" // storage, mail or SMS provider failed
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
