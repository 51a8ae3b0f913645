package tex

// Warnf is the diagnostic sink for non-fatal conditions: coerced header
// fields, dropped faces or mips, refused in-place rotations. It defaults to a
// no-op; callers that want diagnostics install their own function. The sink
// must be set before concurrent use of the library begins.
var Warnf = func(format string, args ...any) {}
