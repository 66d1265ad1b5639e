package common

import (
	"time"
)

type DecisionBranch string

const (
	BranchUnknownFace DecisionBranch = "unknown"
	BranchKnownFace   DecisionBranch = "known"
)

type DecisionOutcome string

const (
	OutcomeEnrolled        DecisionOutcome = "enrolled"
	OutcomeDuplicateWindow DecisionOutcome = "duplicate_window"
	OutcomeNoFace          DecisionOutcome = "no_face"
	OutcomeCooldown        DecisionOutcome = "cooldown"
	OutcomeReviewSent      DecisionOutcome = "review_sent"
	OutcomePasscodeSent    DecisionOutcome = "passcode_sent"
	OutcomeMissingVisitor  DecisionOutcome = "missing_visitor"
	OutcomeFailed          DecisionOutcome = "failed"
)

// DecisionRecord is one row of the append-only decision log, written for
// every processed event.
type DecisionRecord struct {
	StreamHandle string
	Identity     string
	Branch       DecisionBranch
	Outcome      DecisionOutcome
	EventTime    time.Time
	Timestamp    time.Time
}
