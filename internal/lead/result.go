package lead

import "fmt"

// Outcome is the terminal state of one submission.
type Outcome string

const (
	OutcomeInvalid            Outcome = "invalid"
	OutcomeStorageFailed      Outcome = "storage_failed"
	OutcomeAlreadyCaptured    Outcome = "already_captured"
	OutcomeSuccess            Outcome = "success"
	OutcomeNotificationFailed Outcome = "success_notification_failed"
	OutcomeCRMFailed          Outcome = "success_crm_failed"
	OutcomeManualFollowUp     Outcome = "success_manual_follow_up"
)

// Succeeded reports whether the visitor's submission counts as accepted.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeSuccess, OutcomeNotificationFailed, OutcomeCRMFailed, OutcomeManualFollowUp, OutcomeAlreadyCaptured:
		return true
	default:
		return false
	}
}

// Aggregate folds the two best-effort step results of a persisted
// submission into one of the four success outcomes.
func Aggregate(notified, synced bool) Outcome {
	switch {
	case notified && synced:
		return OutcomeSuccess
	case !notified && synced:
		return OutcomeNotificationFailed
	case notified && !synced:
		return OutcomeCRMFailed
	default:
		return OutcomeManualFollowUp
	}
}

// Result is the single user-facing answer to a submission.
type Result struct {
	Success bool                `json:"success"`
	Outcome Outcome             `json:"outcome"`
	Message string              `json:"message"`
	ID      string              `json:"id,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Quote   *Quote              `json:"estimate,omitempty"`

	Notified      bool   `json:"-"`
	Synced        bool   `json:"-"`
	CRMDiagnostic string `json:"-"`
}

// Err returns ErrAlreadyCaptured when the dedup policy skipped the write and
// nil for every other outcome.
func (r Result) Err() error {
	if r.Outcome == OutcomeAlreadyCaptured {
		return ErrAlreadyCaptured
	}
	return nil
}

type templates struct {
	noun            string
	success         string
	notifyFailed    string
	crmFailed       string
	manualFollowUp  string
	alreadyCaptured string
	invalidPrefix   string
}

var messageTemplates = map[Kind]templates{
	KindContact: {
		noun:            "message",
		success:         "Your message has been sent successfully!",
		notifyFailed:    "Your message was sent successfully, but there was an issue sending the confirmation email.",
		crmFailed:       "Your message was sent successfully, but there was an issue submitting it to our CRM.",
		manualFollowUp:  "Your message was saved to our system, but there were issues sending the email and submitting to the CRM. We will address this manually.",
		alreadyCaptured: "We already have your details on file and will be in touch soon.",
		invalidPrefix:   "Invalid data.",
	},
	KindEstimate: {
		noun:            "estimate request",
		success:         "Your estimate request has been received!",
		notifyFailed:    "Your estimate request was received, but there was an issue sending the confirmation email.",
		crmFailed:       "Your estimate request was received, but there was an issue submitting it to our CRM.",
		manualFollowUp:  "Your estimate request was saved to our system, but there were issues sending the email and submitting to the CRM. We will address this manually.",
		alreadyCaptured: "We already have your estimate request on file and will be in touch soon.",
		invalidPrefix:   "Invalid lead data.",
	},
}

const storageUnavailableMessage = "Our system is temporarily unavailable. Please try again later."

// SuccessMessage returns the template for a persisted submission's outcome.
func SuccessMessage(kind Kind, outcome Outcome) string {
	t := messageTemplates[kind]
	switch outcome {
	case OutcomeSuccess:
		return t.success
	case OutcomeNotificationFailed:
		return t.notifyFailed
	case OutcomeCRMFailed:
		return t.crmFailed
	case OutcomeManualFollowUp:
		return t.manualFollowUp
	case OutcomeAlreadyCaptured:
		return t.alreadyCaptured
	default:
		return t.success
	}
}

// InvalidMessage renders the validation summary for kind.
func InvalidMessage(kind Kind, verr *ValidationError) string {
	t := messageTemplates[kind]
	if verr == nil || len(verr.Fields) == 0 {
		return t.invalidPrefix + " Please check your input."
	}
	return t.invalidPrefix + " " + verr.Summary()
}

// StorageFailureMessage renders the message for a failed persist. Only the
// coarse code of a *WriteError is ever shown.
func StorageFailureMessage(kind Kind, writeErr *WriteError) string {
	if writeErr == nil {
		return storageUnavailableMessage
	}
	return fmt.Sprintf(
		"Failed to save your %s due to a database issue (Code: %s). Please try again. If the problem persists, contact support.",
		messageTemplates[kind].noun,
		writeErr.Code,
	)
}
