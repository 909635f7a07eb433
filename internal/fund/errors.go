package fund

import "errors"

var (
	ErrMissingSessionToken  = errors.New("FundCard requires a sessionToken")
	ErrMissingAsset         = errors.New("FundCard requires an assetSymbol")
	ErrInvalidInputType     = errors.New("invalid amount input type")
	ErrInvalidTransition    = errors.New("invalid submit state transition")
	ErrNotSubmittable       = errors.New("amount must be greater than zero")
	ErrPopupBlocked         = errors.New("checkout popup was blocked")
	ErrPopupUnavailable     = errors.New("checkout popup could not be opened")
	ErrFetchTimeout         = errors.New("onramp request timed out")
	ErrSessionClosed        = errors.New("funding session is closed")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)
