package metrics

// IncrementCommentCreated counts a new comment, kind is "root" or "reply".
func (m *Metrics) IncrementCommentCreated(kind string) {
	m.safeExecute("IncrementCommentCreated", func() {
		m.CommentsCreatedTotal.WithLabelValues(kind).Inc()
	})
}

func (m *Metrics) IncrementLikeToggle(liked bool) {
	m.safeExecute("IncrementLikeToggle", func() {
		result := "unliked"
		if liked {
			result = "liked"
		}
		m.LikeTogglesTotal.WithLabelValues(result).Inc()
	})
}

func (m *Metrics) IncrementConflictRetry(operation string) {
	m.safeExecute("IncrementConflictRetry", func() {
		m.ConflictRetriesTotal.WithLabelValues(operation).Inc()
	})
}

func (m *Metrics) IncrementEventPublished(event string, err error) {
	m.safeExecute("IncrementEventPublished", func() {
		m.EventsPublishedTotal.WithLabelValues(event, outcome(err)).Inc()
	})
}

func (m *Metrics) IncrementEventHandled(event string, err error) {
	m.safeExecute("IncrementEventHandled", func() {
		m.EventsHandledTotal.WithLabelValues(event, outcome(err)).Inc()
	})
}

// RecordCounterDrift counts a repaired counter, counter is "likes" or "replies".
func (m *Metrics) RecordCounterDrift(counter string) {
	m.safeExecute("RecordCounterDrift", func() {
		m.CounterDriftTotal.WithLabelValues(counter).Inc()
	})
}

func (m *Metrics) RecordAuditRun(drifted int, err error) {
	m.safeExecute("RecordAuditRun", func() {
		m.AuditRunsTotal.WithLabelValues(outcome(err)).Inc()
		if err == nil {
			m.LastAuditDriftCount.Set(float64(drifted))
		}
	})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
