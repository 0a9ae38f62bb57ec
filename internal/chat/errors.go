package chat

import "errors"

// Client-input errors. They are reported to the originating connection and
// never change broker state.
var (
	ErrUnknownRoom    = errors.New("unknown room")
	ErrUnboundName    = errors.New("display name not set")
	ErrNotInRoom      = errors.New("not in a room")
	ErrNotAMember     = errors.New("not a member of the room")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMalformedEvent = errors.New("malformed event")
	ErrAlreadyBound   = errors.New("display name already set")
	ErrReservedName   = errors.New("display name is reserved")
)

// ErrInternalFault marks a broken invariant. The connection that hit it is
// dropped.
var ErrInternalFault = errors.New("internal fault")

var codes = []struct {
	err  error
	code string
}{
	{ErrUnknownRoom, "unknown_room"},
	{ErrUnboundName, "unbound_name"},
	{ErrNotInRoom, "not_in_room"},
	{ErrNotAMember, "not_a_member"},
	{ErrEmptyMessage, "empty_message"},
	{ErrMalformedEvent, "malformed_event"},
	{ErrAlreadyBound, "already_bound"},
	{ErrReservedName, "reserved_name"},
	{ErrInternalFault, "internal_fault"},
}

// Code returns the wire code of err. Errors outside the taxonomy are
// reported as internal faults.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_fault"
}

// IsClientError reports whether err is a client-input error, as opposed to
// an internal fault.
func IsClientError(err error) bool {
	return err != nil && Code(err) != "internal_fault"
}
