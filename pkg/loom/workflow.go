package loom

import "fmt"

// Workflow state machine: draft -> pending_approval -> published, plus
// published -> draft (unpublish). A requested transition is never silently
// discarded; when the approval gate blocks a standard actor's publish, the
// request is downgraded to the nearest permitted state instead of erroring,
// so an author's "publish" action always lands in some state.

// resolveStateChange returns the state an entry actually moves to when the
// actor requests a transition, or an error when the requested value is not a
// recognized state or the transition is not permitted from current.
func resolveStateChange(current, requested EntryState, actor Actor, approvalRequired bool) (EntryState, error) {
	if !requested.IsValid() {
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidEntryState, requested)
	}

	switch requested {
	case EntryStateDraft:
		// Reverting to draft (including unpublish) is always allowed.
		return EntryStateDraft, nil

	case EntryStatePendingApproval:
		if current != EntryStateDraft {
			return "", fmt.Errorf("%w: cannot request approval from %q", ErrInvalidEntryState, current)
		}
		return EntryStatePendingApproval, nil

	case EntryStatePublished:
		switch current {
		case EntryStateDraft:
			if actor.Privileged {
				return EntryStatePublished, nil
			}
			if approvalRequired {
				// Standard authors may ask; a privileged reviewer
				// countersigns when the gate is on.
				return EntryStatePendingApproval, nil
			}
			return EntryStatePublished, nil
		case EntryStatePendingApproval:
			if !actor.Privileged {
				return "", fmt.Errorf("%w: approval requires a privileged actor", ErrPermissionDenied)
			}
			return EntryStatePublished, nil
		case EntryStatePublished:
			return EntryStatePublished, nil
		default:
			return "", fmt.Errorf("%w: cannot publish from %q", ErrInvalidEntryState, current)
		}

	default:
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidEntryState, requested)
	}
}
