package trip

import (
	"fmt"
	"time"
	"unicode"

	"github.com/google/uuid"

	dbt "wander/db/db"
)

// ValidationError is a structural problem in a trip payload. The web layer
// maps it to a 400 response carrying Reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// characters allowed in user-supplied names besides letters and digits
var allowedSafeSymbols = map[rune]bool{
	'_': true,
	'-': true,
	'.': true,
	'@': true,
	'#': true,
	' ': true,
}

func isSecureString(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if _, ok := allowedSafeSymbols[r]; !ok {
				return false
			}
		}
	}
	return true
}

// VerifyName checks a user-supplied trip name: non-empty, bounded, no
// unexpected characters.
func VerifyName(s string) bool {
	if len(s) == 0 || len(s) > 100 {
		return false
	}
	return isSecureString(s)
}

// ValidateTrip runs the structural checks on a trip payload: names are
// well-formed, the tree carries at least one destination leaf, every leaf
// references a destination, roles are known values, and consecutive leaf
// date ranges are contiguous. Returns a *ValidationError describing the
// first failure.
func ValidateTrip(payload TripPayload) error {
	if !VerifyName(payload.Name) {
		return invalid("trip name is empty or malformed")
	}
	for _, pair := range payload.UserIDs {
		if pair.UserID == uuid.Nil {
			return invalid("userIds entry with empty userId")
		}
		if pair.Role != "" && !dbt.RoleType(pair.Role).Valid() {
			return invalid("unknown role %q", pair.Role)
		}
	}

	leafCnt := 0
	for _, node := range payload.TripNodes {
		cnt, err := validateNode(node)
		if err != nil {
			return err
		}
		leafCnt += cnt
	}
	if leafCnt == 0 {
		return invalid("trip has no destination")
	}

	return validateContiguity(payload.TripNodes)
}

// isRefNode reports whether the payload node attaches an existing sub trip
// by reference instead of describing one inline.
func isRefNode(p NodePayload) bool {
	return p.NodeType == NodeTypeComposite && p.TripNodeID != uuid.Nil && len(p.TripNodes) == 0
}

// validateNode checks one subtree and returns how many leaves it holds.
func validateNode(p NodePayload) (int, error) {
	switch p.NodeType {
	case NodeTypeComposite:
		if isRefNode(p) {
			// the referenced sub trip carried its own leaves at creation
			return 1, nil
		}
		if !VerifyName(p.Name) {
			return 0, invalid("sub trip name is empty or malformed")
		}
		leafCnt := 0
		for _, child := range p.TripNodes {
			cnt, err := validateNode(child)
			if err != nil {
				return 0, err
			}
			leafCnt += cnt
		}
		return leafCnt, nil
	case NodeTypeLeaf:
		if p.DestinationID == uuid.Nil {
			return 0, invalid("destination leaf without destinationId")
		}
		return 1, nil
	default:
		return 0, invalid("unknown nodeType %q", p.NodeType)
	}
}

// validateContiguity walks the leaves in listed order and rejects any gap:
// a leaf's departure must not precede the following leaf's arrival. Leaves
// without both sides of the comparison are skipped.
func validateContiguity(nodes []NodePayload) error {
	leaves := flattenLeaves(nodes)
	for i := 1; i < len(leaves); i++ {
		prev := leaves[i-1]
		next := leaves[i]
		dep, depOk := combineDateTime(prev.DepartureDate, prev.DepartureTime)
		arr, arrOk := combineDateTime(next.ArrivalDate, next.ArrivalTime)
		if depOk && arrOk && dep.Before(arr) {
			return invalid("destination dates are not contiguous")
		}
	}
	return nil
}

func flattenLeaves(nodes []NodePayload) []NodePayload {
	var leaves []NodePayload
	for _, node := range nodes {
		if node.NodeType == NodeTypeLeaf {
			leaves = append(leaves, node)
			continue
		}
		leaves = append(leaves, flattenLeaves(node.TripNodes)...)
	}
	return leaves
}

// flattenRefs returns the ids of every sub trip the payload attaches by
// reference.
func flattenRefs(nodes []NodePayload) []uuid.UUID {
	var refs []uuid.UUID
	for _, node := range nodes {
		if isRefNode(node) {
			refs = append(refs, node.TripNodeID)
			continue
		}
		refs = append(refs, flattenRefs(node.TripNodes)...)
	}
	return refs
}

// combineDateTime folds an optional minutes-after-midnight offset into a
// date. Reports false when no date is set.
func combineDateTime(date *time.Time, minutes *int) (time.Time, bool) {
	if date == nil {
		return time.Time{}, false
	}
	if minutes == nil {
		return *date, true
	}
	return date.Add(time.Duration(*minutes) * time.Minute), true
}
