package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EventInfo is a flattened event row for display
type EventInfo struct {
	ClusterName string    `json:"clusterName"`
	Namespace   string    `json:"namespace,omitempty"`
	Type        string    `json:"type,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Object      string    `json:"object,omitempty"`
	Message     string    `json:"message,omitempty"`
	Count       int32     `json:"count,omitempty"`
	Age         string    `json:"age,omitempty"`
	LastSeen    time.Time `json:"lastSeen,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Lister fetches events from several clusters at once
type Lister struct {
	clients ClientGetter
	timeout time.Duration
}

// NewLister creates a Lister
func NewLister(clients ClientGetter, timeout time.Duration) *Lister {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Lister{clients: clients, timeout: timeout}
}

// ListEvents queries every named cluster in parallel. A cluster that fails
// contributes a single row carrying the error.
func (l *Lister) ListEvents(ctx context.Context, clusterNames []string, namespace, fieldSelector string) []EventInfo {
	resultChan := make(chan []EventInfo, len(clusterNames))
	var wg sync.WaitGroup

	for _, clusterName := range clusterNames {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			resultChan <- l.listFromCluster(ctx, name, namespace, fieldSelector)
		}(clusterName)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var all []EventInfo
	for rows := range resultChan {
		all = append(all, rows...)
	}

	// Newest first, errors on top
	sort.SliceStable(all, func(i, j int) bool {
		if (all[i].Error != "") != (all[j].Error != "") {
			return all[i].Error != ""
		}
		if !all[i].LastSeen.Equal(all[j].LastSeen) {
			return all[i].LastSeen.After(all[j].LastSeen)
		}
		return all[i].ClusterName < all[j].ClusterName
	})

	return all
}

func (l *Lister) listFromCluster(ctx context.Context, clusterName, namespace, fieldSelector string) []EventInfo {
	clientset, err := l.clients.Clientset(clusterName)
	if err != nil {
		return []EventInfo{{
			ClusterName: clusterName,
			Error:       fmt.Sprintf("Failed to get cluster client: %v", err),
		}}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	list, err := clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{FieldSelector: fieldSelector})
	if err != nil {
		return []EventInfo{{
			ClusterName: clusterName,
			Error:       fmt.Sprintf("Failed to list events: %v", err),
		}}
	}

	rows := make([]EventInfo, 0, len(list.Items))
	for _, event := range list.Items {
		rows = append(rows, ToEventInfo(clusterName, event))
	}
	return rows
}

// ToEventInfo flattens a Kubernetes event
func ToEventInfo(clusterName string, event corev1.Event) EventInfo {
	lastSeen := lastSeen(event)
	info := EventInfo{
		ClusterName: clusterName,
		Namespace:   event.Namespace,
		Type:        event.Type,
		Reason:      event.Reason,
		Message:     event.Message,
		Count:       event.Count,
		LastSeen:    lastSeen,
	}
	if event.InvolvedObject.Kind != "" {
		info.Object = event.InvolvedObject.Kind + "/" + event.InvolvedObject.Name
	}
	if !lastSeen.IsZero() {
		info.Age = FormatDuration(time.Since(lastSeen))
	}
	return info
}

func lastSeen(event corev1.Event) time.Time {
	switch {
	case !event.LastTimestamp.IsZero():
		return event.LastTimestamp.Time
	case !event.EventTime.IsZero():
		return event.EventTime.Time
	default:
		return event.CreationTimestamp.Time
	}
}

// FormatDuration converts a time.Duration to a short human-readable string,
// like kubectl does
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
