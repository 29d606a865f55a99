package events

import (
	corev1 "k8s.io/api/core/v1"
)

// Status is the derived health of a cluster
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ClusterStatus is a Status together with the error that caused it, if any
type ClusterStatus struct {
	Status Status
	Err    error
}

// Message is a human readable summary of the status
func (s ClusterStatus) Message() string {
	switch {
	case s.Err != nil:
		return s.Err.Error()
	case s.Status == StatusWarning:
		return "Warning events reported"
	default:
		return "Success"
	}
}

// Snapshot is the aggregated state of all watched clusters at one point in
// time. Every change produces a new Snapshot with new maps; the maps of an
// existing Snapshot never change and must be treated as read-only.
//
// Keys are only ever added: a cluster that is no longer watched keeps its
// last recorded entries until it is watched again, when they are cleared.
type Snapshot struct {
	Events map[string][]corev1.Event
	Errors map[string]error
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Events: map[string][]corev1.Event{},
		Errors: map[string]error{},
	}
}

// Status derives a cluster's status: error if an error is recorded, warning
// if at least one event is recorded, success otherwise
func (s Snapshot) Status(name string) ClusterStatus {
	if err, ok := s.Errors[name]; ok && err != nil {
		return ClusterStatus{Status: StatusError, Err: err}
	}
	if len(s.Events[name]) > 0 {
		return ClusterStatus{Status: StatusWarning}
	}
	return ClusterStatus{Status: StatusSuccess}
}

func (s Snapshot) withEvents(name string, items []corev1.Event) Snapshot {
	events := make(map[string][]corev1.Event, len(s.Events)+1)
	for k, v := range s.Events {
		events[k] = v
	}
	events[name] = append([]corev1.Event(nil), items...)
	return Snapshot{Events: events, Errors: s.Errors}
}

func (s Snapshot) withError(name string, err error) Snapshot {
	errs := make(map[string]error, len(s.Errors)+1)
	for k, v := range s.Errors {
		errs[k] = v
	}
	errs[name] = err
	return Snapshot{Events: s.Events, Errors: errs}
}

// withReset clears the entries of a cluster that is watched again. Existing
// keys stay, holding no events and a nil error. The flag reports whether
// anything was cleared.
func (s Snapshot) withReset(name string) (Snapshot, bool) {
	_, hasEvents := s.Events[name]
	_, hasError := s.Errors[name]
	if !hasEvents && !hasError {
		return s, false
	}

	events := make(map[string][]corev1.Event, len(s.Events))
	for k, v := range s.Events {
		events[k] = v
	}
	errs := make(map[string]error, len(s.Errors))
	for k, v := range s.Errors {
		errs[k] = v
	}
	if hasEvents {
		events[name] = []corev1.Event{}
	}
	if hasError {
		errs[name] = nil
	}
	return Snapshot{Events: events, Errors: errs}, true
}
