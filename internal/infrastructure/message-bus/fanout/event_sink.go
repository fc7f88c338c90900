package fanoutbus

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type eventSink struct {
	sinks []ports.SelectionEventSink
}

// NewEventSink returns a sink delivering every event to all the given
// sinks, in order. A failing or panicking sink doesn't prevent delivery to
// the others. Nil sinks are ignored.
func NewEventSink(sinks ...ports.SelectionEventSink) ports.SelectionEventSink {
	list := make([]ports.SelectionEventSink, 0, len(sinks))
	for _, s := range sinks {
		if isNil(s) {
			continue
		}
		list = append(list, s)
	}
	return &eventSink{list}
}

func (s *eventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	errs := make([]error, 0)
	for i, sink := range s.sinks {
		if err := publish(sink, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func publish(
	sink ports.SelectionEventSink, event domain.SelectionEvent,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()
	return sink.PublishSelectionEvent(event)
}

func isNil(sink ports.SelectionEventSink) bool {
	if sink == nil {
		return true
	}
	v := reflect.ValueOf(sink)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
