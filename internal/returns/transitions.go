package returns

import "github.com/pgmicro/inventory-backend/pkg/database"

// transitions declares the allowed status moves for a return request.
// Refunded and Replaced are only reachable by creating the matching
// settlement record, never by a bare status edit.
var transitions = map[string][]string{
	database.ReturnRequested: {database.ReturnApproved, database.ReturnRejected, database.ReturnClosed},
	database.ReturnApproved:  {database.ReturnClosed},
}

// IsTerminal reports whether no further transition is permitted
func IsTerminal(status string) bool {
	switch status {
	case database.ReturnRejected, database.ReturnRefunded, database.ReturnReplaced, database.ReturnClosed:
		return true
	}
	return false
}

// CanTransition reports whether a bare status edit may move a return
// from one status to the other.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
