package viewer

import (
	"cloud-hospital/queue/queue-tracker/pkg/infra"

	"github.com/emirpasic/gods/maps/hashmap"
	"go.uber.org/zap"
)

// A viewer joining or leaving. Both go through one channel so a leave is
// never handled before its join.
type membership struct {
	viewer *Viewer
	joined bool
}

type Hub struct {
	// Connected viewers. Key value: viewer.id -> viewer.
	viewers *hashmap.Map

	// Register and unregister requests from the viewers.
	membership chan membership

	// Asks the hub for its viewer count.
	size chan chan int

	// Closes every viewer, the hub stops afterwards.
	shutdown chan chan struct{}
	stopped  chan struct{}

	metrics *infra.Metrics
	logger  *zap.SugaredLogger
}

func ProvideHub(metrics *infra.Metrics, loggerFactory *infra.LoggerFactory) *Hub {
	return &Hub{
		viewers:    hashmap.New(),
		membership: make(chan membership, 2048),
		size:       make(chan chan int),
		shutdown:   make(chan chan struct{}),
		stopped:    make(chan struct{}),
		metrics:    metrics,
		logger:     loggerFactory.Create("Hub").Sugar(),
	}
}

// Don't need lock on viewers since only this goroutine touches them.
func (h *Hub) Run() {
	for {
		select {
		case m := <-h.membership:
			viewer := m.viewer
			if m.joined {
				h.logger.Debugf("register viewer id[%v] ip[%v]", viewer.id, viewer.ip)
				h.viewers.Put(viewer.id, viewer)
				h.updateGauge()
				continue
			}

			h.logger.Debugf("unregister viewer id[%v]", viewer.id)
			if _, ok := h.viewers.Get(viewer.id); !ok {
				continue
			}
			h.viewers.Remove(viewer.id)
			h.updateGauge()

		case reply := <-h.size:
			reply <- h.viewers.Size()

		case done := <-h.shutdown:
			close(h.stopped)
			h.logger.Infof("closing viewers cnt[%v]", h.viewers.Size())
			for _, value := range h.viewers.Values() {
				value.(*Viewer).Close()
			}
			h.viewers.Clear()
			h.updateGauge()
			close(done)
			return
		}
	}
}

func (h *Hub) Size() int {
	reply := make(chan int)
	select {
	case h.size <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

func (h *Hub) Shutdown() {
	done := make(chan struct{})
	select {
	case h.shutdown <- done:
		<-done
	case <-h.stopped:
	}
}

func (h *Hub) add(viewer *Viewer) bool {
	select {
	case <-h.stopped:
		return false
	default:
	}

	select {
	case h.membership <- membership{viewer: viewer, joined: true}:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) remove(viewer *Viewer) {
	select {
	case h.membership <- membership{viewer: viewer}:
	case <-h.stopped:
	}
}

func (h *Hub) updateGauge() {
	if h.metrics != nil {
		h.metrics.ActiveViewers.Set(float64(h.viewers.Size()))
	}
}
