package audit

import (
	"fmt"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// VerifyResult reports the outcome of a chain verification.
type VerifyResult struct {
	Verified     bool
	Checked      int
	FailedIndex  int
	FailedReason string
}

// Status renders the operator-facing verdict.
func (r VerifyResult) Status() string {
	if r.Verified {
		return "VERIFIED"
	}
	return fmt.Sprintf("FAILED at index %d: %s", r.FailedIndex, r.FailedReason)
}

// VerifyChain checks a contiguous per-org range of entries. The first
// entry's prev_hash is accepted as-is (retention may have deleted earlier
// rows); every subsequent entry must hash correctly and link to its
// predecessor.
func VerifyChain(entries []domain.AuditEntry) VerifyResult {
	for i, entry := range entries {
		userID := ""
		if entry.UserID != nil {
			userID = *entry.UserID
		}
		expected := ComputeHash(entry.PrevHash, entry.OrganizationID, userID,
			entry.Action, entry.EntityType, entry.EntityID, entry.CreatedAt,
			entry.OldValues, entry.NewValues)
		if entry.RowHash != expected {
			return VerifyResult{
				Checked:      i,
				FailedIndex:  i,
				FailedReason: "row hash mismatch",
			}
		}
		if i > 0 && entry.PrevHash != entries[i-1].RowHash {
			return VerifyResult{
				Checked:      i,
				FailedIndex:  i,
				FailedReason: "broken link to previous entry",
			}
		}
	}
	return VerifyResult{Verified: true, Checked: len(entries)}
}
