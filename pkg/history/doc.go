/*
Package history implements the history of a reliable reader.

A ReaderHistory stores received changes and groups them by instance. It
enforces the history kind (keep_last or keep_all) and the resource limits.
It applies the ownership rules, tracks instance state, and expires samples
when their deadline or lifespan passes.

Changes live in an arena and are referred to by ChangeId. An id stays
valid until its change is removed; after that, it resolves to nothing even
if the slot gets reused.

	h, err := history.New(&cfg, history.WithListener(onEvent))
	go h.Run(ctx)
	...
	if !h.ReceivedChange(change, 0) {
		// refused for lack of resources; the writer will resend it
	}
	change, info, err := h.TakeNextSample(ctx)
*/
package history
