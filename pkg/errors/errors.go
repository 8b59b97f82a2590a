package errors

import (
	stderrors "errors"
	"fmt"
)

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized  = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID = Definition{Code: "INVALID_USER_ID", Message: "Invalid worker ID format"}
)

// 考勤模块错误。
var (
	CheckInLimitReached = Definition{Code: "CHECK_IN_LIMIT_REACHED", Message: "Daily check-in limit reached"}
	AlreadyPresent      = Definition{Code: "ALREADY_PRESENT", Message: "Already checked in"}
	NotPresent          = Definition{Code: "NOT_PRESENT", Message: "Not checked in"}
	NoOpenRecord        = Definition{Code: "NO_OPEN_RECORD", Message: "No open attendance record"}
	PauseAlreadyTaken   = Definition{Code: "PAUSE_ALREADY_TAKEN", Message: "Pause already taken for this record"}
	AttendanceBusy      = Definition{Code: "ATTENDANCE_BUSY", Message: "Another attendance update is in progress"}
)

// 请求参数错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	InvalidLocation = Definition{Code: "INVALID_LOCATION", Message: "Invalid location"}
	RateLimited     = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:        Unauthorized,
	InvalidUserID.Code:       InvalidUserID,
	CheckInLimitReached.Code: CheckInLimitReached,
	AlreadyPresent.Code:      AlreadyPresent,
	NotPresent.Code:          NotPresent,
	NoOpenRecord.Code:        NoOpenRecord,
	PauseAlreadyTaken.Code:   PauseAlreadyTaken,
	AttendanceBusy.Code:      AttendanceBusy,
	InvalidRequest.Code:      InvalidRequest,
	InvalidLocation.Code:     InvalidLocation,
	RateLimited.Code:         RateLimited,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// AsDefinition 从错误链中取出业务错误
func AsDefinition(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}

// 基础设施错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrUserIDNotFound               = stderrors.New("worker id not found in token")
	ErrIDGeneratorNotInitialized    = stderrors.New("snowflake generator is not initialized")
)

// SkipMessageError 表示消息已被处理过，消费者直接 ack 不再重试
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return fmt.Sprintf("skip message: %s", e.Reason)
}

// IsSkipMessage 判断是否为可跳过的重复消息
func IsSkipMessage(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
