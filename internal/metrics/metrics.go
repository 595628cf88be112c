package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IdentitiesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ruang",
		Name:      "identities_issued_total",
		Help:      "Anonymous identities created.",
	})

	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ruang",
		Name:      "groups_created_total",
		Help:      "Groups created.",
	})

	MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ruang",
		Name:      "membership_changes_total",
		Help:      "Group membership mutations by operation.",
	}, []string{"op"})

	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ruang",
		Name:      "messages_appended_total",
		Help:      "Messages appended by scope kind.",
	}, []string{"kind"})

	ReactionsToggled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ruang",
		Name:      "reactions_toggled_total",
		Help:      "Reaction toggles applied.",
	})

	ActiveFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ruang",
		Name:      "active_feeds",
		Help:      "Open live message subscriptions.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ruang",
		Name:      "ws_connections",
		Help:      "Open WebSocket connections.",
	})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
