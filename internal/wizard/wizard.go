// Package wizard implements the multi-step issue report flow: category,
// location, details, evidence, review, confirmation. It owns its draft
// exclusively and hands a sanitized report to the persistence boundary on
// submit.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ReportReward is the fixed civic-credit grant for a non-anonymous report.
const ReportReward = 25

// Step identifies one wizard state.
type Step int

const (
	StepCategory Step = iota
	StepLocation
	StepDetails
	StepEvidence
	StepReview
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepCategory:
		return "category"
	case StepLocation:
		return "location"
	case StepDetails:
		return "details"
	case StepEvidence:
		return "evidence"
	case StepReview:
		return "review"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// transitions lists the legal forward edges. Confirmation loops back to
// category on "report another"; every other edge is linear.
var transitions = map[Step][]Step{
	StepCategory:     {StepLocation},
	StepLocation:     {StepDetails},
	StepDetails:      {StepEvidence},
	StepEvidence:     {StepReview},
	StepReview:       {StepConfirmation},
	StepConfirmation: {StepCategory},
}

var (
	// ErrClosed indicates the wizard was cancelled and its draft discarded.
	ErrClosed = errors.New("wizard closed")
	// ErrWrongStep indicates the action is illegal in the current step.
	ErrWrongStep = errors.New("action not available at this step")
	// ErrUnknownCategory indicates a category outside the selectable set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrLocationMissing indicates neither address nor coordinates present.
	ErrLocationMissing = errors.New("address or coordinates required")
	// ErrDetailsIncomplete indicates title or description is empty.
	ErrDetailsIncomplete = errors.New("title and description required")
	// ErrSubmitInFlight indicates a submit is already outstanding.
	ErrSubmitInFlight = errors.New("submit already in progress")
	// ErrAnonymousActive indicates contact preferences cannot change while
	// the anonymous toggle is on.
	ErrAnonymousActive = errors.New("contact preferences locked while anonymous")
)

// ValidationError carries field-level messages from submit validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

// Position is a captured geographic coordinate pair.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Geolocator is the platform location capability. Calls may fail or the
// capability may be absent (nil); neither blocks progression.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Report is the sanitized record handed to the persistence boundary.
type Report struct {
	Category    string
	Subcategory string
	Urgency     int
	Title       string
	Description string
	Address     string
	Latitude    *float64
	Longitude   *float64

	Anonymous        bool
	FollowUp         bool
	PreferredContact string
	ContactPhone     string
	ContactEmail     string

	Photos    []Evidence
	Documents []Evidence
	VoiceNote *AudioClip
}

// ReportSink persists a finished report. It must be atomic per call and is
// expected to fail with an error rather than partially write.
type ReportSink interface {
	CreateReport(ctx context.Context, report Report) (string, error)
}

// CreditGranter awards civic credits after a successful submission.
type CreditGranter interface {
	GrantCredits(ctx context.Context, amount int, reason, refID string) error
}

// Wizard is one report flow instance. Methods are safe for the single
// UI-event caller plus the recorder's background tick.
type Wizard struct {
	sink     ReportSink
	credits  CreditGranter
	geo      Geolocator
	recorder *Recorder

	mu                sync.Mutex
	step              Step
	draft             Draft
	urgencyOverridden bool
	submitting        bool
	closed            bool
	message           string
	reportID          string
}

// New opens a wizard at the category step with an empty draft.
func New(sink ReportSink, credits CreditGranter, geo Geolocator, mic Microphone) *Wizard {
	return &Wizard{
		sink:     sink,
		credits:  credits,
		geo:      geo,
		recorder: NewRecorder(mic),
		step:     StepCategory,
		draft:    emptyDraft(),
	}
}

func emptyDraft() Draft {
	return Draft{PreferredContact: "none"}
}

// Step returns the current wizard state.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the accumulating draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Recorder returns the voice note sub-machine.
func (w *Wizard) Recorder() *Recorder {
	return w.recorder
}

// Message returns the confirmation message after a successful submit.
func (w *Wizard) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// ReportID returns the persisted report id after a successful submit.
func (w *Wizard) ReportID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reportID
}

func (w *Wizard) advance(to Step) error {
	for _, next := range transitions[w.step] {
		if next == to {
			w.step = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrWrongStep, w.step, to)
}

// SelectCategory sets the draft category, seeds the category's default
// urgency unless the user already overrode it, and advances to location.
func (w *Wizard) SelectCategory(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepCategory {
		return ErrWrongStep
	}

	category, ok := CategoryByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}

	w.draft.Category = category.Name
	w.draft.Subcategory = ""
	if !w.urgencyOverridden {
		w.draft.Urgency = category.DefaultUrgency
	}
	return w.advance(StepLocation)
}

// SetSubcategory records an optional subcategory choice.
func (w *Wizard) SetSubcategory(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Subcategory = name
}

// CaptureLocation asks the platform for the current position. Capture is
// best-effort: on success the coordinates are stored; on failure or absent
// capability nothing is, and either way the wizard advances to details. The
// capture error is returned for surfacing only.
func (w *Wizard) CaptureLocation(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.step != StepLocation {
		w.mu.Unlock()
		return ErrWrongStep
	}
	geo := w.geo
	w.mu.Unlock()

	var captureErr error
	var pos Position
	if geo == nil {
		captureErr = errors.New("geolocation unavailable")
	} else {
		pos, captureErr = geo.CurrentPosition(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.step != StepLocation {
		return ErrWrongStep
	}
	if captureErr == nil {
		lat, lng := pos.Latitude, pos.Longitude
		w.draft.Latitude = &lat
		w.draft.Longitude = &lng
	}
	if err := w.advance(StepDetails); err != nil {
		return err
	}
	return captureErr
}

// SetAddress records a manually typed address.
func (w *Wizard) SetAddress(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Address = address
}

// ContinueFromLocation advances past location on the manual path. At least
// one of address or coordinates must be present.
func (w *Wizard) ContinueFromLocation() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepLocation {
		return ErrWrongStep
	}
	if strings.TrimSpace(w.draft.Address) == "" && w.draft.Latitude == nil {
		return ErrLocationMissing
	}
	return w.advance(StepDetails)
}

// SetTitle records the report title.
func (w *Wizard) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Title = title
}

// SetDescription records the report description.
func (w *Wizard) SetDescription(description string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Description = description
}

// SetUrgency overrides the category's suggested urgency. The override
// survives later category reselection.
func (w *Wizard) SetUrgency(level int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Urgency = level
	w.urgencyOverridden = true
}

// ToggleAnonymous flips the anonymous flag. Turning it on immediately forces
// follow-up off and the preferred contact to "none"; those preferences are
// not independently settable while anonymous is active.
func (w *Wizard) ToggleAnonymous(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Anonymous = on
	if on {
		w.draft.FollowUp = false
		w.draft.PreferredContact = "none"
	}
}

// SetFollowUp records whether the reporter wants follow-up contact.
func (w *Wizard) SetFollowUp(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft.Anonymous {
		return ErrAnonymousActive
	}
	w.draft.FollowUp = on
	return nil
}

// SetPreferredContact records the follow-up channel: none, phone, or email.
func (w *Wizard) SetPreferredContact(channel string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft.Anonymous {
		return ErrAnonymousActive
	}
	w.draft.PreferredContact = channel
	return nil
}

// SetContactPhone records the follow-up phone number.
func (w *Wizard) SetContactPhone(phone string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.ContactPhone = phone
}

// SetContactEmail records the follow-up email address.
func (w *Wizard) SetContactEmail(email string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.ContactEmail = email
}

// CanContinueDetails reports whether the details gate is satisfied: both
// title and description non-empty after trimming.
func (w *Wizard) CanContinueDetails() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(w.draft.Title) != "" && strings.TrimSpace(w.draft.Description) != ""
}

// ContinueFromDetails advances to evidence, guarded by the details gate.
func (w *Wizard) ContinueFromDetails() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepDetails {
		return ErrWrongStep
	}
	if strings.TrimSpace(w.draft.Title) == "" || strings.TrimSpace(w.draft.Description) == "" {
		return ErrDetailsIncomplete
	}
	return w.advance(StepEvidence)
}

// AddPhoto attaches a photo to the draft.
func (w *Wizard) AddPhoto(photo Evidence) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Photos = append(w.draft.Photos, photo)
}

// AddDocument attaches a supporting document to the draft.
func (w *Wizard) AddDocument(doc Evidence) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Documents = append(w.draft.Documents, doc)
}

// ContinueFromEvidence advances to review. Evidence is always optional.
func (w *Wizard) ContinueFromEvidence() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepEvidence {
		return ErrWrongStep
	}
	return w.advance(StepReview)
}

// validate re-checks the full form defensively even though the steps were
// gated. Any failure blocks the persistence call entirely.
func validate(d Draft) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(d.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = "Description is required"
	}
	if !d.Anonymous && d.FollowUp {
		switch d.PreferredContact {
		case "phone":
			if strings.TrimSpace(d.ContactPhone) == "" {
				fields["contactPhone"] = "Phone number is required for phone follow-up"
			}
		case "email":
			if strings.TrimSpace(d.ContactEmail) == "" {
				fields["contactEmail"] = "Email is required for email follow-up"
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Submit validates the draft, persists it, grants the civic-credit reward
// unless anonymous, and advances to confirmation. While the persistence call
// is outstanding, further submits are refused so no duplicate record can be
// issued. On persistence failure the wizard stays on review with the draft
// intact.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.step != StepReview {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if vErr := validate(w.draft); vErr != nil {
		w.mu.Unlock()
		return vErr
	}
	w.submitting = true
	w.draft.VoiceNote = w.recorder.Clip()
	report := sanitized(w.draft)
	w.mu.Unlock()

	reportID, err := w.sink.CreateReport(ctx, report)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	if !report.Anonymous && w.credits != nil {
		// Reward failure must not roll back a persisted report.
		if grantErr := w.credits.GrantCredits(ctx, ReportReward, "issue_report", reportID); grantErr != nil {
			w.message = "Your report was submitted, but the reward could not be credited yet."
		}
	}

	w.reportID = reportID
	if w.message == "" {
		if report.Anonymous {
			w.message = "Thank you. Your anonymous report was submitted."
		} else {
			w.message = fmt.Sprintf("Thank you! Your report was submitted and %d civic credits were added to your account.", ReportReward)
		}
	}
	return w.advance(StepConfirmation)
}

func sanitized(d Draft) Report {
	return Report{
		Category:         d.Category,
		Subcategory:      strings.TrimSpace(d.Subcategory),
		Urgency:          d.Urgency,
		Title:            strings.TrimSpace(d.Title),
		Description:      strings.TrimSpace(d.Description),
		Address:          strings.TrimSpace(d.Address),
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		Anonymous:        d.Anonymous,
		FollowUp:         d.FollowUp,
		PreferredContact: d.PreferredContact,
		ContactPhone:     strings.TrimSpace(d.ContactPhone),
		ContactEmail:     strings.TrimSpace(d.ContactEmail),
		Photos:           d.Photos,
		Documents:        d.Documents,
		VoiceNote:        d.VoiceNote,
	}
}

// ReportAnother resets the wizard from confirmation back to an empty draft
// at the category step.
func (w *Wizard) ReportAnother() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.step != StepConfirmation {
		return ErrWrongStep
	}
	w.draft = emptyDraft()
	w.urgencyOverridden = false
	w.message = ""
	w.reportID = ""
	w.recorder.Close()
	return w.advance(StepCategory)
}

// Close cancels the wizard, discarding the draft and stopping any in-flight
// recording. Available at every step.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.draft = Draft{}
	w.recorder.Close()
}
