package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_feed",
		Name:      "mutations_total",
		Help:      "Store mutations by operation and result.",
	}, []string{"op", "result"})

	ToggleFlips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_feed",
		Name:      "toggle_flips_total",
		Help:      "Membership toggles by relation and direction.",
	}, []string{"relation", "direction"})

	CounterRepairs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_feed",
		Name:      "counter_repairs_total",
		Help:      "Denormalized counters rewritten by the reconciler.",
	}, []string{"collection"})

	OutboxDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_feed",
		Name:      "outbox_delivered_total",
		Help:      "Outbox rows relayed to the broker by result.",
	}, []string{"result"})
)

// MustRegister 注册到指定 registry，main 中调用一次
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(Mutations, ToggleFlips, CounterRepairs, OutboxDelivered)
}
