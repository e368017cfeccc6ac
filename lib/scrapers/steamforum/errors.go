package steamforum

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags a classified site response. The set is closed, callers switch on
// it instead of matching error types.
type Kind int

const (
	KindUnknown Kind = iota
	// login failures
	KindLogin
	KindUserSuspended
	KindTooFast
	KindPrivateProfile
	KindUserLevel
	// steamtrades
	KindTradeClosed
	KindNoTrades
	KindTradeNotReady
	// steamgifts
	KindConfigure
	KindGiveawayEnded
	KindNoGiveaways
	KindNoPoints
	KindNoLevel
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindLogin:          "login",
	KindUserSuspended:  "user_suspended",
	KindTooFast:        "too_fast",
	KindPrivateProfile: "private_profile",
	KindUserLevel:      "user_level",
	KindTradeClosed:    "trade_closed",
	KindNoTrades:       "no_trades",
	KindTradeNotReady:  "trade_not_ready",
	KindConfigure:      "configure",
	KindGiveawayEnded:  "giveaway_ended",
	KindNoGiveaways:    "no_giveaways",
	KindNoPoints:       "no_points",
	KindNoLevel:        "no_level",
}

func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return name
}

// IsLogin reports whether k is one of the login failure kinds.
func (k Kind) IsLogin() bool {
	switch k {
	case KindLogin, KindUserSuspended, KindTooFast, KindPrivateProfile, KindUserLevel:
		return true
	}
	return false
}

// TooFastWait is how long the site asks clients to back off after a
// "Please wait" notice on the login page.
const TooFastWait = 15 * time.Second

// Error is a classified failure. Only the fields relevant to Kind are set:
// TradeId/TradeTitle for the trade kinds, MinutesLeft for KindTradeNotReady.
type Error struct {
	Kind        Kind
	Message     string
	TradeId     string
	TradeTitle  string
	MinutesLeft int
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Kind, so the Err* sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// RetryAfter is the wait the site asked for, zero when it did not say.
func (e *Error) RetryAfter() time.Duration {
	switch e.Kind {
	case KindTooFast:
		return TooFastWait
	case KindTradeNotReady:
		return time.Duration(e.MinutesLeft) * time.Minute
	}
	return 0
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrLogin          = &Error{Kind: KindLogin}
	ErrUserSuspended  = &Error{Kind: KindUserSuspended}
	ErrTooFast        = &Error{Kind: KindTooFast}
	ErrPrivateProfile = &Error{Kind: KindPrivateProfile}
	ErrUserLevel      = &Error{Kind: KindUserLevel}
	ErrTradeClosed    = &Error{Kind: KindTradeClosed}
	ErrNoTrades       = &Error{Kind: KindNoTrades}
	ErrTradeNotReady  = &Error{Kind: KindTradeNotReady}
	ErrConfigure      = &Error{Kind: KindConfigure}
	ErrGiveawayEnded  = &Error{Kind: KindGiveawayEnded}
	ErrNoGiveaways    = &Error{Kind: KindNoGiveaways}
	ErrNoPoints       = &Error{Kind: KindNoPoints}
	ErrNoLevel        = &Error{Kind: KindNoLevel}
)

// ErrMalformedPage means the page broke the markup contract (a required token
// or field is missing). It is never wrapped in an *Error.
var ErrMalformedPage = errors.New("malformed page")

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// RetryAfter returns the wait surfaced by a classified error in err's chain.
func RetryAfter(err error) (time.Duration, bool) {
	var classified *Error
	if !errors.As(err, &classified) {
		return 0, false
	}
	wait := classified.RetryAfter()
	return wait, wait > 0
}
