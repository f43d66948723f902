package capability

import "context"

// Handler implements a single method.
type Handler func(ctx context.Context, computer Computer, args Arguments) ([]any, error)

// Method pairs a script-visible name with its handler.
type Method struct {
	Name    string
	Handler Handler
}

// Table is an ordered method list. A method's position is its call index;
// aliases are separate entries sharing one handler.
type Table []Method

// Names returns method names in index order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, m := range t {
		names[i] = m.Name
	}
	return names
}

// Index returns the call index of name.
func (t Table) Index(name string) (int, bool) {
	for i, m := range t {
		if m.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Dispatch runs the handler at index method.
func (t Table) Dispatch(ctx context.Context, computer Computer, method int, args Arguments) ([]any, error) {
	if method < 0 || method >= len(t) {
		return nil, Argumentf("No such method #%d", method)
	}
	return t[method].Handler(ctx, computer, args)
}

// Results is shorthand for building a handler's return list.
func Results(values ...any) []any {
	return values
}
