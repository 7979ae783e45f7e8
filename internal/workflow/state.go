package workflow

import (
	"expertcheck/internal/apperrors"
	"expertcheck/internal/models"
)

// transitionAllowed reports whether a content item may move from one status
// to another. Terminal states never transition.
func transitionAllowed(from, to models.ContentStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusInReview || to == models.StatusValidated || to == models.StatusRejected
	case models.StatusInReview:
		return to == models.StatusValidated || to == models.StatusRejected
	default:
		return false
	}
}

// checkTransition returns the coded error for a disallowed move. Attempts to
// validate an already validated item report AlreadyFinalized.
func checkTransition(from, to models.ContentStatus) error {
	if transitionAllowed(from, to) {
		return nil
	}
	if from == models.StatusValidated && to == models.StatusValidated {
		return apperrors.ErrAlreadyFinalized
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition,
		"cannot move content from "+string(from)+" to "+string(to),
		map[string]string{"from": string(from), "to": string(to)},
	)
}
