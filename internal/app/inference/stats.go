package inference

import "time"

type Stats struct {
	TotalRequests       uint64        `json:"total_requests"`
	SuccessfulRequests  uint64        `json:"successful_requests"`
	FailedRequests      uint64        `json:"failed_requests"`
	UnparsedReplies     uint64        `json:"unparsed_replies"`
	TotalTokensUsed     uint64        `json:"total_tokens_used"`
	MinLatency          time.Duration `json:"min_latency"`
	MaxLatency          time.Duration `json:"max_latency"`
	AvgLatencyMS        float64       `json:"avg_latency_ms"`
	CacheHits           uint64        `json:"cache_hits"`
	CacheMisses         uint64        `json:"cache_misses"`
	FallbackDecisions   uint64        `json:"fallback_decisions"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Degraded            bool          `json:"degraded"`
}

// recordSuccess folds one completed request into the latency aggregates;
// the average is maintained incrementally over successful requests.
func (s *Stats) recordSuccess(latency time.Duration, tokens int) {
	s.TotalRequests++
	s.SuccessfulRequests++
	if tokens > 0 {
		s.TotalTokensUsed += uint64(tokens)
	}
	if s.MinLatency == 0 || latency < s.MinLatency {
		s.MinLatency = latency
	}
	if latency > s.MaxLatency {
		s.MaxLatency = latency
	}
	n := float64(s.SuccessfulRequests)
	sample := float64(latency) / float64(time.Millisecond)
	s.AvgLatencyMS = (s.AvgLatencyMS*(n-1) + sample) / n
}

func (s *Stats) recordFailure() {
	s.TotalRequests++
	s.FailedRequests++
}
