package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeCancelled          ErrorCode = "COMMON_017"
)

// Aliases used at call sites that predate the ErrCode prefix.
const (
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeValidation   = ErrCodeValidation

	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
	CodeDecomposition         = ErrCodeDecomposition
	CodeUnknownCluster        = ErrCodeUnknownCluster
	CodeAssemblyMismatch      = ErrCodeAssemblyMismatch
	CodeNumericInstability    = ErrCodeNumericInstability
	CodeCheckpointIO          = ErrCodeCheckpointIO
	CodeEmptyCorpus           = ErrCodeEmptyCorpus
	CodeVocabularyFrozen      = ErrCodeVocabularyFrozen
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidFormat ErrorCode = "MOL_003"
	ErrCodeMoleculeParsingFailed ErrorCode = "MOL_006"
	ErrCodeRingPerceptionFailed  ErrorCode = "MOL_016"
)

// Junction-tree VAE Error Codes
const (
	ErrCodeDecomposition      ErrorCode = "JTNN_001"
	ErrCodeUnknownCluster     ErrorCode = "JTNN_002"
	ErrCodeAssemblyMismatch   ErrorCode = "JTNN_003"
	ErrCodeNumericInstability ErrorCode = "JTNN_004"
	ErrCodeCheckpointIO       ErrorCode = "JTNN_005"
	ErrCodeEmptyCorpus        ErrorCode = "JTNN_006"
	ErrCodeVocabularyFrozen   ErrorCode = "JTNN_007"
	ErrCodeModelConfig        ErrorCode = "JTNN_008"
)

// Storage Error Codes
const (
	ErrCodeObjectNotFound ErrorCode = "STORE_001"
	ErrCodeUploadFailed   ErrorCode = "STORE_002"
	ErrCodeDownloadFailed ErrorCode = "STORE_003"
	ErrCodeBucketSetup    ErrorCode = "STORE_004"
)

// ErrorCodeHTTPStatus maps codes to the status used by the status server.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeCancelled:          499,

	ErrCodeMoleculeInvalidSMILES: http.StatusBadRequest,
	ErrCodeMoleculeInvalidFormat: http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed: http.StatusUnprocessableEntity,
	ErrCodeRingPerceptionFailed:  http.StatusUnprocessableEntity,

	ErrCodeDecomposition:      http.StatusUnprocessableEntity,
	ErrCodeUnknownCluster:     http.StatusUnprocessableEntity,
	ErrCodeAssemblyMismatch:   http.StatusUnprocessableEntity,
	ErrCodeNumericInstability: http.StatusInternalServerError,
	ErrCodeCheckpointIO:       http.StatusInternalServerError,
	ErrCodeEmptyCorpus:        http.StatusBadRequest,
	ErrCodeVocabularyFrozen:   http.StatusConflict,
	ErrCodeModelConfig:        http.StatusBadRequest,

	ErrCodeObjectNotFound: http.StatusNotFound,
	ErrCodeUploadFailed:   http.StatusBadGateway,
	ErrCodeDownloadFailed: http.StatusBadGateway,
	ErrCodeBucketSetup:    http.StatusServiceUnavailable,
}

// ErrorCodeMessage holds the default message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeCancelled:          "operation cancelled",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES string",
	ErrCodeMoleculeInvalidFormat: "invalid molecule format",
	ErrCodeMoleculeParsingFailed: "molecule parsing failed",
	ErrCodeRingPerceptionFailed:  "ring perception failed",

	ErrCodeDecomposition:      "junction tree decomposition failed",
	ErrCodeUnknownCluster:     "cluster signature not in vocabulary",
	ErrCodeAssemblyMismatch:   "no candidate assembly reproduces the target graph",
	ErrCodeNumericInstability: "loss is not finite",
	ErrCodeCheckpointIO:       "checkpoint I/O failed",
	ErrCodeEmptyCorpus:        "no valid molecules left after filtering",
	ErrCodeVocabularyFrozen:   "vocabulary is frozen",
	ErrCodeModelConfig:        "invalid model configuration",

	ErrCodeObjectNotFound: "object not found",
	ErrCodeUploadFailed:   "upload failed",
	ErrCodeDownloadFailed: "download failed",
	ErrCodeBucketSetup:    "bucket setup failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsPerExample reports whether a code describes a fault confined to a single
// molecule or step, which callers skip and count instead of aborting.
func IsPerExample(code ErrorCode) bool {
	switch code {
	case ErrCodeMoleculeInvalidSMILES, ErrCodeMoleculeParsingFailed, ErrCodeRingPerceptionFailed,
		ErrCodeDecomposition, ErrCodeUnknownCluster, ErrCodeAssemblyMismatch, ErrCodeNumericInstability:
		return true
	}
	return false
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
