package payment

type Method string

const (
	MethodCard     Method = "tarjeta"
	MethodTransfer Method = "transferencia"

	DefaultMethod = MethodCard
)

// Known reports whether the tag is one the UI has a label for. Selection
// does not consult it.
func (m Method) Known() bool {
	return m == MethodCard || m == MethodTransfer
}

type Selection struct {
	method Method
}

func NewSelection() *Selection {
	return &Selection{method: DefaultMethod}
}

func SelectionOf(m Method) *Selection {
	if m == "" {
		return NewSelection()
	}
	return &Selection{method: m}
}

func (s *Selection) Current() Method {
	return s.method
}

func (s *Selection) SetPaymentMethod(m Method) {
	s.method = m
}

func (s *Selection) ResetPaymentMethod() {
	s.method = DefaultMethod
}
