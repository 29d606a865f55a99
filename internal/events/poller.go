package events

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

// ClientGetter resolves a cluster name to a Kubernetes client
type ClientGetter interface {
	Clientset(name string) (kubernetes.Interface, error)
}

// PollingSource is a Source that lists the events of a cluster on a fixed interval
type PollingSource struct {
	clients       ClientGetter
	interval      time.Duration
	timeout       time.Duration
	namespace     string
	fieldSelector string
}

// PollingOption customizes a PollingSource
type PollingOption func(*PollingSource)

// WithNamespace limits polling to one namespace. The default is all namespaces.
func WithNamespace(namespace string) PollingOption {
	return func(p *PollingSource) {
		p.namespace = namespace
	}
}

// WithFieldSelector filters the listed events, e.g. "type=Warning"
func WithFieldSelector(selector string) PollingOption {
	return func(p *PollingSource) {
		p.fieldSelector = selector
	}
}

// WithRequestTimeout bounds every list call
func WithRequestTimeout(timeout time.Duration) PollingOption {
	return func(p *PollingSource) {
		p.timeout = timeout
	}
}

// NewPollingSource creates a source polling every interval
func NewPollingSource(clients ClientGetter, interval time.Duration, opts ...PollingOption) *PollingSource {
	p := &PollingSource{
		clients:  clients,
		interval: interval,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.interval <= 0 {
		p.interval = 10 * time.Second
	}
	return p
}

// Subscribe starts polling clusterName in the background. The first poll
// happens immediately.
func (p *PollingSource) Subscribe(clusterName string, onData func([]corev1.Event), onError func(error)) CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		wait.UntilWithContext(ctx, func(ctx context.Context) {
			items, err := p.list(ctx, clusterName)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
				return
			}
			onData(items)
		}, p.interval)
		klog.V(3).InfoS("Event polling stopped", "cluster", clusterName)
	}()

	return func() {
		cancel()
		<-done
	}
}

func (p *PollingSource) list(ctx context.Context, clusterName string) ([]corev1.Event, error) {
	clientset, err := p.clients.Clientset(clusterName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	list, err := clientset.CoreV1().Events(p.namespace).List(ctx, metav1.ListOptions{
		FieldSelector: p.fieldSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return list.Items, nil
}
