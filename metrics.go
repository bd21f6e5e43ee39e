package rosslar

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts link traffic. A nil *Metrics records nothing.
type Metrics struct {
	BytesRead        prometheus.Counter
	BytesWritten     prometheus.Counter
	BytesPurged      prometheus.Counter
	ReadErrors       prometheus.Counter
	WriteErrors      prometheus.Counter
	Matches          *prometheus.CounterVec
	RepliesScheduled prometheus.Counter
	RepliesDropped   prometheus.Counter
	RepliesSent      prometheus.Counter
}

// NewMetrics creates the link metrics and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rosslar",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		BytesRead:    counter("link", "bytes_read_total", "Bytes received from the host"),
		BytesWritten: counter("link", "bytes_written_total", "Bytes written to the host"),
		BytesPurged:  counter("matcher", "bytes_purged_total", "Bytes aged out of the match window"),
		ReadErrors:   counter("link", "read_errors_total", "Failed transport reads"),
		WriteErrors:  counter("link", "write_errors_total", "Failed transport writes"),
		Matches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rosslar",
				Subsystem: "matcher",
				Name:      "matches_total",
				Help:      "Recognized frames by command",
			},
			[]string{"command"},
		),
		RepliesScheduled: counter("schedule", "replies_scheduled_total", "Replies queued for release"),
		RepliesDropped:   counter("schedule", "replies_dropped_total", "Replies dropped on a release time collision"),
		RepliesSent:      counter("schedule", "replies_sent_total", "Replies written to the host"),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.BytesRead, m.BytesWritten, m.BytesPurged, m.ReadErrors, m.WriteErrors,
		m.Matches, m.RepliesScheduled, m.RepliesDropped, m.RepliesSent,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) read(n int) {
	if m != nil {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) readError() {
	if m != nil {
		m.ReadErrors.Inc()
	}
}

func (m *Metrics) purged(n int) {
	if m != nil {
		m.BytesPurged.Add(float64(n))
	}
}

func (m *Metrics) matched(res Result) {
	if m == nil || res.Matched == nil {
		return
	}
	m.Matches.WithLabelValues(res.Matched.Command.String()).Inc()
	if res.Matched.Reply == nil {
		return
	}
	if res.Scheduled {
		m.RepliesScheduled.Inc()
	} else {
		m.RepliesDropped.Inc()
	}
}

func (m *Metrics) sent(n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.WriteErrors.Inc()
		return
	}
	m.RepliesSent.Inc()
	m.BytesWritten.Add(float64(n))
}
