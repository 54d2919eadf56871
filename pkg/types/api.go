package types

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindIO          ErrKind = iota // transient device read failure
	ErrKindCorrupt                    // single malformed MFT/journal record
	ErrKindStale                      // FRN sequence mismatch (slot was reused)
	ErrKindNotFound                   // missing record/path
	ErrKindUnresolved                 // broken parent chain (orphaned ancestor)
	ErrKindGap                        // journal cursor invalidated (truncated/wrapped)
	ErrKindFatal                      // device unusable, index frozen
	ErrKindState                      // invalid operation for current state
	ErrKindUnsupported                // recognized but unsupported feature/platform
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match any Error of the same kind, so callers can use
// the sentinels below as comparison targets without caring about Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrIO indicates a transient device read failure. Callers may retry
	// with bounded attempts before escalating.
	ErrIO = &Error{Kind: ErrKindIO, Msg: "volume read failed"}
	// ErrCorruptRecord indicates a single malformed record. Scans skip and
	// count these; they never abort the overall operation.
	ErrCorruptRecord = &Error{Kind: ErrKindCorrupt, Msg: "corrupt record"}
	// ErrStaleRef indicates the FRN's sequence number no longer matches the
	// slot's occupant. Surfaced to callers as "not found".
	ErrStaleRef = &Error{Kind: ErrKindStale, Msg: "stale file reference"}
	// ErrNotFound indicates a missing record.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrPathUnresolved indicates the parent chain could not be walked to
	// the volume root (orphaned ancestor or cycle).
	ErrPathUnresolved = &Error{Kind: ErrKindUnresolved, Msg: "path unresolved"}
	// ErrJournalGap indicates the change journal no longer retains history
	// covering the saved cursor. Triggers a full re-scan, not a crash.
	ErrJournalGap = &Error{Kind: ErrKindGap, Msg: "journal gap"}
	// ErrFatalIO indicates the device became unusable.
	ErrFatalIO = &Error{Kind: ErrKindFatal, Msg: "device unusable"}
	// ErrUnsupported indicates a recognized but unsupported feature or an
	// operation not available on this platform.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "unsupported"}
)
