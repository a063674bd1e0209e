package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UsersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "users_registered_total",
		Help:      "Accounts created through registration.",
	})

	LoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "login_failures_total",
		Help:      "Rejected login attempts by reason.",
	}, []string{"reason"})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_created_total",
		Help:      "Orders persisted, split by whether a user was attached.",
	}, []string{"owner"})

	FeedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "feed_queries_total",
		Help:      "Document-store feed queries by outcome.",
	}, []string{"outcome"})
)
