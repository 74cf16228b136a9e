package notifier

// QueueNotifier receives worker events for one job. The worker does not know who submitted the job.
type QueueNotifier interface {
	OnQueued(position int)
	OnStarted()
	// OnDropped is called when a queued job is discarded at shutdown without running.
	OnDropped()
}

// Noop is a QueueNotifier that does nothing.
var Noop QueueNotifier = noopQueueNotifier{}

type noopQueueNotifier struct{}

func (noopQueueNotifier) OnQueued(int) {}
func (noopQueueNotifier) OnStarted()   {}
func (noopQueueNotifier) OnDropped()   {}
