package game

import "errors"

var (
	ErrDuplicateSubmission  = errors.New("duplicate-submission")
	ErrStaleTransition      = errors.New("stale-transition")
	ErrInvalidConfiguration = errors.New("invalid-configuration")
	ErrStoreUnavailable     = errors.New("store-unavailable")
)

var (
	ErrRoomNotFound   = errors.New("room-not-found")
	ErrPlayerNotFound = errors.New("player-not-found")
	ErrRoundNotFound  = errors.New("round-not-found")
	ErrRoomFull       = errors.New("room-full")
)

var (
	ErrNotHost            = errors.New("not-host")
	ErrInvalidTransition  = errors.New("invalid-transition")
	ErrWrongPhase         = errors.New("wrong-phase")
	ErrUnknownBallotEntry = errors.New("unknown-ballot-entry")
	ErrIneligibleVoter    = errors.New("ineligible-voter")
)

var ErrRoomExists = errors.New("room-exists")
