// Package relay forwards generation requests to the inference server and
// re-emits its output, either as a stream of raw text fragments or as one
// buffered completion. It also hosts the model directory.
//
//   - request.go: GenerationRequest and validation.
//   - errors.go: error kinds and HTTP status mapping.
//   - lines.go: NDJSON line splitting across upstream reads.
//   - relay.go: Relay (streaming and buffered paths).
//   - directory.go: Directory (installed model listing).
//   - service.go: Service, the facade consumed by the HTTP layer.
//   - metrics.go: Prometheus collectors.
//
// Nothing in this package keeps per-conversation state; every request is
// independent and may run concurrently with any other.
package relay
