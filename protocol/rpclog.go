package protocol

import "log/slog"

// LogRPC emits the structured log entry both sides write around an
// exchange: once when the request leaves (or arrives), once when the
// result is known. It is the only externally observable side effect of a
// call besides the HTTP response itself, so the field set is fixed:
// direction, side, operation name, forward/backward, return code, elapsed
// time, both identities and coarse payload shapes. Payload contents are
// never logged.
func LogRPC(log *slog.Logger, server, isResponse bool, e *Envelope, inputs, outputs []int) {
	if log == nil {
		return
	}
	side := "dendrite"
	if server {
		side = "axon"
	}
	direction := "outbound"
	if isResponse {
		direction = "inbound"
	}
	attrs := []any{
		slog.String("side", side),
		slog.String("dir", direction),
		slog.String("synapse", e.Name()),
		slog.Bool("forward", e.IsForward()),
		slog.String("code", e.Code().String()),
		slog.Duration("elapsed", e.Elapsed()),
		slog.String("sender", ShortAddress(e.Sender())),
		slog.String("receiver", ShortAddress(e.Receiver())),
		slog.Any("inputs", inputs),
		slog.Any("outputs", outputs),
	}
	if isResponse {
		attrs = append(attrs, slog.String("message", e.Message()))
	}
	log.Info("rpc", attrs...)
}

// ShortAddress abbreviates a hex address for log lines, keeping the first
// and last four characters.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
