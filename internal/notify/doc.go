// Package notify fans comment events out to subscribers.
//
// Views emit events on a [Signal]; subscribers register listeners for the
// event names they care about. [Stdout] logs every event. [Mail] queues an
// email for each new comment and delivers it through a [Sender], either
// [SMTP] or [Resend].
//
//	sig := notify.NewSignal(log)
//	sig.Add(notify.NewStdout(log))
//	sig.Emit(ctx, notify.Event{Name: notify.CommentNew, URI: uri, Comment: c})
//
// Listener errors are logged and never reach the emitter.
package notify
