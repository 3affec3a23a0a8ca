package router

import "payrouter/internal/model"

// SelectProcessor picks the processor that should receive the next payment,
// given both health snapshots. Among non-failing processors the smaller
// minResponseTime wins and ties go to default. When both are failing the
// policy fails open to default rather than refusing the payment.
//
// Pure by construction: no I/O, no clock, no state.
func SelectProcessor(defaultHealth, fallbackHealth model.HealthStatus) model.Processor {
	if !defaultHealth.Failing && !fallbackHealth.Failing {
		if fallbackHealth.MinResponseTime < defaultHealth.MinResponseTime {
			return model.ProcessorFallback
		}
		return model.ProcessorDefault
	}

	if !fallbackHealth.Failing {
		return model.ProcessorFallback
	}

	return model.ProcessorDefault
}
