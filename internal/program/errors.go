// internal/program/errors.go
package program

import (
	"errors"
	"fmt"
)

// Kind groups error codes by what the caller did wrong.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindState
	KindConfig
	KindValidation
	KindArithmetic
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindArithmetic:
		return "arithmetic"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is a launchpad failure with its on-chain error code.
type Error struct {
	Code uint32
	Name string
	Msg  string
	Kind Kind
	// Detail is optional context appended to the message.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s: %s", e.Name, e.Code, e.Msg, e.Detail)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Is matches any *Error with the same code, so sentinels compare equal to
// copies carrying Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e carrying detail.
func (e *Error) With(format string, args ...any) *Error {
	c := *e
	c.Detail = fmt.Sprintf(format, args...)
	return &c
}

func newError(code uint32, name, msg string, kind Kind) *Error {
	e := &Error{Code: code, Name: name, Msg: msg, Kind: kind}
	byCode[code] = e
	return e
}

var byCode = map[uint32]*Error{}

var (
	ErrInvalidGlobalAuthority    = newError(6000, "InvalidGlobalAuthority", "Invalid Global Authority", KindAuthorization)
	ErrInvalidWithdrawAuthority  = newError(6001, "InvalidWithdrawAuthority", "Invalid Withdraw Authority", KindAuthorization)
	ErrInvalidArgument           = newError(6002, "InvalidArgument", "Invalid Argument", KindValidation)
	ErrAlreadyInitialized        = newError(6003, "AlreadyInitialized", "Global Already Initialized", KindState)
	ErrNotInitialized            = newError(6004, "NotInitialized", "Global Not Initialized", KindState)
	ErrProgramNotRunning         = newError(6005, "ProgramNotRunning", "Not in Running State", KindState)
	ErrBondingCurveComplete      = newError(6006, "BondingCurveComplete", "Bonding Curve Complete", KindState)
	ErrBondingCurveNotComplete   = newError(6007, "BondingCurveNotComplete", "Bonding Curve Not Complete", KindState)
	ErrInsufficientUserTokens    = newError(6008, "InsufficientUserTokens", "Insufficient User Tokens", KindResource)
	ErrInsufficientCurveTokens   = newError(6009, "InsufficientCurveTokens", "Insufficient Curve Tokens", KindResource)
	ErrInsufficientUserSOL       = newError(6010, "InsufficientUserSOL", "Insufficient user SOL", KindResource)
	ErrSlippageExceeded          = newError(6011, "SlippageExceeded", "Slippage Exceeded", KindValidation)
	ErrMinSwap                   = newError(6012, "MinSwap", "Swap exactInAmount is 0", KindValidation)
	ErrBuyFailed                 = newError(6013, "BuyFailed", "Buy Failed", KindValidation)
	ErrSellFailed                = newError(6014, "SellFailed", "Sell Failed", KindValidation)
	ErrBondingCurveInvariant     = newError(6015, "BondingCurveInvariant", "Bonding Curve Invariant Failed", KindArithmetic)
	ErrCurveNotStarted           = newError(6016, "CurveNotStarted", "Curve Not Started", KindState)
	ErrInvalidAllocation         = newError(6017, "InvalidAllocation", "Invalid Allocation Data supplied, basis points must add up to 10000", KindValidation)
	ErrInvalidStartTime          = newError(6018, "InvalidStartTime", "Start time is in the past", KindValidation)
	ErrWlInitializeFailed        = newError(6019, "WlInitializeFailed", "Whitelist is already initialized", KindState)
	ErrWlNotInitializeFailed     = newError(6020, "WlNotInitializeFailed", "Whitelist is not initialized", KindState)
	ErrAddFailed                 = newError(6021, "AddFailed", "This creator already in whitelist", KindState)
	ErrRemoveFailed              = newError(6022, "RemoveFailed", "This creator is not in whitelist", KindState)
	ErrWlNotInitialized          = newError(6023, "WlNotInitialized", "The WL account is not initialized", KindState)
	ErrNotWhiteList              = newError(6024, "NotWhiteList", "This creator is not in whitelist", KindAuthorization)
	ErrNotCompleted              = newError(6025, "NotCompleted", "Bonding curve is not completed", KindState)
	ErrNotBondingCurveMint       = newError(6026, "NotBondingCurveMint", "This token is not a bonding curve token", KindValidation)
	ErrNotSOL                    = newError(6027, "NotSOL", "Not quote mint", KindConfig)
	ErrInvalidConfig             = newError(6028, "InvalidConfig", "Not equel config", KindConfig)
	ErrBondingCurveExists        = newError(6029, "BondingCurveExists", "Bonding curve already exists for this mint", KindState)
	ErrBondingCurveNotFound      = newError(6030, "BondingCurveNotFound", "Bonding curve not found", KindState)
	ErrAlreadyMigrated           = newError(6031, "AlreadyMigrated", "Bonding curve already migrated", KindState)
	ErrPoolNotCreated            = newError(6032, "PoolNotCreated", "Pool has not been created", KindState)
	ErrInvalidMigrationAuthority = newError(6033, "InvalidMigrationAuthority", "Invalid Migration Authority", KindAuthorization)
)

// ErrorByCode looks up the error registered for an on-chain code.
func ErrorByCode(code uint32) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}

// KindOf classifies err, returning KindUnknown for infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the on-chain code of err, if it has one.
func CodeOf(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
