// Package metrics provides a story hook recording step and story latencies as
// OpenTelemetry histograms.
//
// Two instruments are created from the configured prefix:
//
//	<prefix>_executions_latency_ms       service, story_name, status
//	<prefix>_step_executions_latency_ms  service, story_name, step_name, status
//
// Custom labels from Config.Labels are added to both. The story-level series
// is recorded once per run: when the last declared step finishes or when a
// step fails, with the summed elapsed time of the steps reached so far.
package metrics
