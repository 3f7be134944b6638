package http

import "time"

// Headers
const (
	walletAddressHeader = "X-Wallet-Address"
	requestIDHeader     = "X-Request-ID"
)

// Generic HTTP / JSON strings
const (
	HTTPErrorInvalidJSONText  = "invalid JSON"
	HTTPErrorInvalidFormText  = "invalid multipart form"
	HTTPErrorInvalidAssetText = "invalid asset id"
	HTTPErrorRateLimitedText  = "rate limit exceeded"
)

// Common JSON keys
const (
	JSONKeyOK    = "ok"
	JSONKeyError = "error"
	JSONKeyKind  = "kind"
	JSONKeyURL   = "url"
)

// Multipart field names
const (
	FormFieldFile      = "file"
	FormFieldName      = "name"
	FormFieldBanner    = "banner"
	FormFieldAvatar    = "avatar"
	FormFieldExplicit  = "explicit"
	FormFieldRoyalty   = "royaltyPercentage"
	FormFieldCreator   = "creator"
	QueryParamAddress  = "address"
	PathVarAssetID     = "id"
	multipartMemoryMax = 8 << 20
)

// Defaults
const (
	DefaultGenerateRateTokens   = 5
	DefaultGenerateRateInterval = time.Minute
	CORSMaxAgeSeconds           = 600
)
