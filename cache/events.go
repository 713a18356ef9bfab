package cache

// ExpiredArgs describes one entry that transitioned from present to
// removed because its deadline passed. SendNotification is false when the
// removal itself was driven by a peer's invalidation, so subscribers do
// not re-broadcast it.
type ExpiredArgs struct {
	Key              string
	SendNotification bool
}

// OnEntryExpired registers fn to run for every expiry-removal. Overt
// Remove calls do not fire it. The returned func unsubscribes.
//
// Delivery is asynchronous with respect to the operation that noticed
// the expiration; handlers must be safe to run concurrently.
func (e *Engine) OnEntryExpired(fn func(ExpiredArgs)) (unsubscribe func()) {
	e.subMu.Lock()
	e.subSeq++
	id := e.subSeq
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) notifyExpired(key string, sendNotification bool) {
	e.subMu.Lock()
	if len(e.subs) == 0 {
		e.subMu.Unlock()
		return
	}
	fns := make([]func(ExpiredArgs), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	args := ExpiredArgs{Key: key, SendNotification: sendNotification}
	go func() {
		for _, fn := range fns {
			fn(args)
		}
	}()
}
