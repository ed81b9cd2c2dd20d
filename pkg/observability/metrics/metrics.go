package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	sessionsStarted     atomic.Int64
	sessionsCompleted   atomic.Int64
	sessionsDegraded    atomic.Int64
	classifierCalls     atomic.Int64
	classifierFailures  atomic.Int64
	redactionHits       atomic.Int64
	recordsPending      atomic.Int64
	recordsValidated    atomic.Int64
	validationOverrides atomic.Int64
	blindWriteConflicts atomic.Int64
)

func IncSessionsStarted()     { sessionsStarted.Add(1) }
func IncSessionsCompleted()   { sessionsCompleted.Add(1) }
func IncSessionsDegraded()    { sessionsDegraded.Add(1) }
func IncClassifierCalls()     { classifierCalls.Add(1) }
func IncClassifierFailures()  { classifierFailures.Add(1) }
func AddRedactionHits(n int)  { redactionHits.Add(int64(n)) }
func IncRecordsValidated()    { recordsValidated.Add(1) }
func IncValidationOverrides() { validationOverrides.Add(1) }
func IncBlindWriteConflicts() { blindWriteConflicts.Add(1) }

// ObservePendingRecords stores the latest worklist depth sample.
func ObservePendingRecords(n int) { recordsPending.Store(int64(n)) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP vitalsort_intake_sessions_started_total Number of intake conversations started.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_intake_sessions_started_total counter\n")
	fmt.Fprintf(w, "vitalsort_intake_sessions_started_total %d\n", sessionsStarted.Load())

	fmt.Fprintf(w, "# HELP vitalsort_intake_sessions_completed_total Number of intake conversations that produced a clinical record.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_intake_sessions_completed_total counter\n")
	fmt.Fprintf(w, "vitalsort_intake_sessions_completed_total %d\n", sessionsCompleted.Load())

	fmt.Fprintf(w, "# HELP vitalsort_intake_sessions_degraded_total Number of intake conversations completed without an AI classification.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_intake_sessions_degraded_total counter\n")
	fmt.Fprintf(w, "vitalsort_intake_sessions_degraded_total %d\n", sessionsDegraded.Load())

	fmt.Fprintf(w, "# HELP vitalsort_classifier_calls_total Number of triage classifier invocations.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_classifier_calls_total counter\n")
	fmt.Fprintf(w, "vitalsort_classifier_calls_total %d\n", classifierCalls.Load())

	fmt.Fprintf(w, "# HELP vitalsort_classifier_failures_total Number of triage classifier invocations that errored.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_classifier_failures_total counter\n")
	fmt.Fprintf(w, "vitalsort_classifier_failures_total %d\n", classifierFailures.Load())

	fmt.Fprintf(w, "# HELP vitalsort_redaction_hits_total Number of PII fragments replaced before classification.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_redaction_hits_total counter\n")
	fmt.Fprintf(w, "vitalsort_redaction_hits_total %d\n", redactionHits.Load())

	fmt.Fprintf(w, "# HELP vitalsort_records_pending Worklist depth at the latest sample.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_records_pending gauge\n")
	fmt.Fprintf(w, "vitalsort_records_pending %d\n", recordsPending.Load())

	fmt.Fprintf(w, "# HELP vitalsort_records_validated_total Number of records closed by a nurse.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_records_validated_total counter\n")
	fmt.Fprintf(w, "vitalsort_records_validated_total %d\n", recordsValidated.Load())

	fmt.Fprintf(w, "# HELP vitalsort_validation_overrides_total Number of validations where the final level differed from the blind level.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_validation_overrides_total counter\n")
	fmt.Fprintf(w, "vitalsort_validation_overrides_total %d\n", validationOverrides.Load())

	fmt.Fprintf(w, "# HELP vitalsort_blind_write_conflicts_total Number of rejected duplicate blind classification attempts.\n")
	fmt.Fprintf(w, "# TYPE vitalsort_blind_write_conflicts_total counter\n")
	fmt.Fprintf(w, "vitalsort_blind_write_conflicts_total %d\n", blindWriteConflicts.Load())
}
