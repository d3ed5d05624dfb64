package bayes

import "fmt"

// ModelBuildError reports invalid input to the model builder. A build that
// fails with this error must not proceed to sampling.
type ModelBuildError struct {
	Reason string
}

func (e *ModelBuildError) Error() string {
	return fmt.Sprintf("model build: %s", e.Reason)
}

func buildErrorf(format string, a ...interface{}) *ModelBuildError {
	return &ModelBuildError{Reason: fmt.Sprintf(format, a...)}
}

// SamplingError reports an invalid sampling configuration or a degenerate
// model. Statistical non-convergence is never a SamplingError; it is
// reported through the ConvergenceReport.
type SamplingError struct {
	Reason string
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling: %s", e.Reason)
}

func samplingErrorf(format string, a ...interface{}) *SamplingError {
	return &SamplingError{Reason: fmt.Sprintf(format, a...)}
}
