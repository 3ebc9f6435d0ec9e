package interact

// Two wait primitives with an explicit contract, so the distinction
// between correctness waits and optimisation waits is visible at the
// call site instead of inferred from surrounding control flow.

// await runs a bounded operation and propagates its outcome. Use for
// waits the action's correctness depends on.
func await(op func() error) error {
	return op()
}

// attempt runs a bounded operation and discards its outcome. Use for
// settle waits that only improve stability: their expiry is never an
// action failure.
func (e *Executor) attempt(what string, op func() error) {
	if err := op(); err != nil {
		e.log.Debug("interact: best-effort wait expired", "what", what, "error", err)
	}
}
