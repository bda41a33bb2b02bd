package eventlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsAppended counts records written to a backend
	RecordsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "eventlog_records_appended_total",
		Help:      "Records appended to the event log, by backend.",
	}, []string{"backend"})

	// PayloadsRejected counts records whose content could not be decoded
	PayloadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "eventlog_payloads_rejected_total",
		Help:      "Records skipped because their payload could not be decoded, by consumer.",
	}, []string{"consumer"})
)
