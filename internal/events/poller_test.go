package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

type staticClients map[string]kubernetes.Interface

func (c staticClients) Clientset(name string) (kubernetes.Interface, error) {
	clientset, ok := c[name]
	if !ok {
		return nil, errors.New("cluster not found")
	}
	return clientset, nil
}

func warning(namespace, name string) *corev1.Event {
	return &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Type:       corev1.EventTypeWarning,
		Reason:     "FailedScheduling",
		InvolvedObject: corev1.ObjectReference{
			Kind: "Pod",
			Name: name,
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	data   [][]corev1.Event
	errors []error
}

func (r *recorder) onData(items []corev1.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, items)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data), len(r.errors)
}

func TestPollingSourceDeliversEvents(t *testing.T) {
	clients := staticClients{"a": fake.NewClientset(warning("default", "web"), warning("kube-system", "dns"))}
	src := NewPollingSource(clients, 10*time.Millisecond)

	rec := &recorder{}
	cancel := src.Subscribe("a", rec.onData, rec.onError)
	defer cancel()

	require.Eventually(t, func() bool {
		data, _ := rec.counts()
		return data >= 2
	}, 5*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.data[0], 2)
	assert.Empty(t, rec.errors)
}

func TestPollingSourceNamespace(t *testing.T) {
	clients := staticClients{"a": fake.NewClientset(warning("default", "web"), warning("kube-system", "dns"))}
	src := NewPollingSource(clients, time.Hour, WithNamespace("kube-system"))

	rec := &recorder{}
	cancel := src.Subscribe("a", rec.onData, rec.onError)
	defer cancel()

	require.Eventually(t, func() bool {
		data, _ := rec.counts()
		return data == 1
	}, 5*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.data[0], 1)
	assert.Equal(t, "dns", rec.data[0][0].Name)
}

func TestPollingSourceReportsErrors(t *testing.T) {
	clientset := fake.NewClientset()
	clientset.PrependReactor("list", "events", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("forbidden")
	})
	clients := staticClients{"a": clientset}
	src := NewPollingSource(clients, time.Hour)

	rec := &recorder{}
	cancel := src.Subscribe("a", rec.onData, rec.onError)
	defer cancel()

	require.Eventually(t, func() bool {
		_, errs := rec.counts()
		return errs == 1
	}, 5*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ErrorContains(t, rec.errors[0], "forbidden")
	assert.Empty(t, rec.data)
}

func TestPollingSourceUnknownCluster(t *testing.T) {
	src := NewPollingSource(staticClients{}, time.Hour)

	rec := &recorder{}
	cancel := src.Subscribe("ghost", rec.onData, rec.onError)
	defer cancel()

	require.Eventually(t, func() bool {
		_, errs := rec.counts()
		return errs == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestPollingSourceStopsAfterCancel(t *testing.T) {
	clients := staticClients{"a": fake.NewClientset(warning("default", "web"))}
	src := NewPollingSource(clients, 5*time.Millisecond)

	rec := &recorder{}
	cancel := src.Subscribe("a", rec.onData, rec.onError)
	require.Eventually(t, func() bool {
		data, _ := rec.counts()
		return data >= 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	cancel()
	stopped, _ := rec.counts()
	time.Sleep(50 * time.Millisecond)
	after, _ := rec.counts()
	assert.Equal(t, stopped, after)
}

func TestWatcherWithPollingSource(t *testing.T) {
	failing := fake.NewClientset()
	failing.PrependReactor("list", "events", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("unauthorized")
	})
	clients := staticClients{
		"noisy":  fake.NewClientset(warning("default", "web")),
		"quiet":  fake.NewClientset(),
		"broken": failing,
	}

	w := NewWatcher(NewPollingSource(clients, 10*time.Millisecond))
	defer w.Close()
	w.Observe([]string{"noisy", "quiet", "broken"})

	require.Eventually(t, func() bool {
		s := w.Snapshot()
		_, quietSeen := s.Events["quiet"]
		return s.Status("noisy").Status == StatusWarning &&
			s.Status("broken").Status == StatusError &&
			quietSeen
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusSuccess, w.Snapshot().Status("quiet").Status)
}
