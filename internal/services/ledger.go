package services

import "gasy-hub-backend/internal/models"

// HasVoted reports whether userID is already in the alert's vote ledger
func HasVoted(alert *models.Alert, userID string) bool {
	for _, id := range alert.ValidatedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// RecordVote adds userID to the ledger and bumps the matching counter.
// The caller must hold the alert's row lock (AlertStore.Mutate).
func RecordVote(alert *models.Alert, userID string, confirm bool) error {
	if HasVoted(alert, userID) {
		return ErrAlreadyVoted
	}
	alert.ValidatedBy = append(alert.ValidatedBy, userID)
	if confirm {
		alert.ConfirmedCount++
	} else {
		alert.RejectedCount++
	}
	return nil
}
