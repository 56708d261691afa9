package metrics

type RequestRecorder interface {
	IncRequests()
	IncRequestFailures()
	IncSessionInvalidations()
}

type NoopRequestRecorder struct{}

func (NoopRequestRecorder) IncRequests()             {}
func (NoopRequestRecorder) IncRequestFailures()      {}
func (NoopRequestRecorder) IncSessionInvalidations() {}

type PollRecorder interface {
	IncPollTicks()
	IncPollDiscards()
}

type NoopPollRecorder struct{}

func (NoopPollRecorder) IncPollTicks()    {}
func (NoopPollRecorder) IncPollDiscards() {}

type ToggleRecorder interface {
	IncToggleRollbacks()
}

type NoopToggleRecorder struct{}

func (NoopToggleRecorder) IncToggleRollbacks() {}
