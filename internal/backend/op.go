package backend

// OpKind identifies one scheduled-operation category.
type OpKind string

const (
	// OpSetValue is an instantaneous parameter set.
	OpSetValue OpKind = "set_value"
	// OpLinearRamp is a linear ramp ending at the op's time.
	OpLinearRamp OpKind = "linear_ramp"
	// OpExponentialRamp is an exponential ramp ending at the op's time.
	OpExponentialRamp OpKind = "exponential_ramp"
	// OpStart starts a source node.
	OpStart OpKind = "start"
	// OpStop stops a source node.
	OpStop OpKind = "stop"
	// OpConnect adds an edge. Recorded at submission time.
	OpConnect OpKind = "connect"
	// OpDisconnect removes an edge. Recorded at submission time.
	OpDisconnect OpKind = "disconnect"
)

// Op is one recorded scheduled operation. Backends that keep an op log
// (the virtual backend, the trace store) share this record.
//
// Seq is a monotonic submission counter: when two ops share a
// timestamp, the higher Seq was submitted later and wins. Ordering an
// op log by (At, Seq) yields execution order.
type Op struct {
	Seq    int64   `json:"seq"`
	Node   string  `json:"node"`
	Param  string  `json:"param,omitempty"`
	Kind   OpKind  `json:"kind"`
	Value  float64 `json:"value,omitempty"`
	Target string  `json:"target,omitempty"` // peer node for connect/disconnect
	At     float64 `json:"at"`
}

// IsParamOp reports whether the op is a parameter operation, the only
// category CancelScheduledValues may drop.
func (o Op) IsParamOp() bool {
	switch o.Kind {
	case OpSetValue, OpLinearRamp, OpExponentialRamp:
		return true
	}
	return false
}
