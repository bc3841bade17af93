package repokit

// Binder builds a repo of type T against a specific Queryer. Services
// bind once per transaction, so every statement in the tx shares the
// same session.
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain constructor function to a Binder
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil Queryer; binding one is always a
// wiring bug, never a runtime condition.
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// MustBind validates q and binds it in one step
func MustBind[T any](b Binder[T], q Queryer) T {
	return b.Bind(RequireQueryer(q))
}
