package eventstream

import "errors"

// ErrNilEvent indicates a nil event payload was provided to a publisher.
var ErrNilEvent = errors.New("nil event")

// ErrPublish wraps backend failures while publishing an event.
var ErrPublish = errors.New("event publish failed")
