package checkout

type Step int

const (
	StepCart         Step = 1
	StepShipping     Step = 2
	StepPayment      Step = 3
	StepConfirmation Step = 4

	FirstStep = StepCart
	LastStep  = StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Tracker holds the wizard position shown by the progress indicator.
// It is display state: SetCurrentStep accepts any value, only NextStep and
// PreviousStep clamp.
type Tracker struct {
	current Step
}

func NewTracker() *Tracker {
	return &Tracker{current: FirstStep}
}

func TrackerAt(step Step) *Tracker {
	return &Tracker{current: step}
}

func (t *Tracker) Current() Step {
	return t.current
}

func (t *Tracker) SetCurrentStep(step Step) {
	t.current = step
}

// NextStep moves to min(current+1, LastStep).
func (t *Tracker) NextStep() {
	t.current = min(t.current+1, LastStep)
}

// PreviousStep moves to max(current-1, FirstStep).
func (t *Tracker) PreviousStep() {
	t.current = max(t.current-1, FirstStep)
}
