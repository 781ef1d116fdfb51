package lang

import "errors"

// Flow is the control outcome of one loop-body evaluation.
type Flow uint8

const (
	FlowNext Flow = iota
	FlowBreak
	FlowContinue
)

func (f Flow) String() string {
	switch f {
	case FlowNext:
		return "next"
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	default:
		return "invalid"
	}
}

// Outcome is the result of one loop-body evaluation: the value produced
// before the body finished or was interrupted, and how it finished.
type Outcome struct {
	Value Value
	Flow  Flow
}

// flowSignal carries break and continue up the ordinary error return until a
// loop form converts it into an [Outcome].
type flowSignal struct {
	flow Flow
}

func (s *flowSignal) Error() string { return s.flow.String() + " outside of a loop" }

var (
	signalBreak    = &flowSignal{flow: FlowBreak}
	signalContinue = &flowSignal{flow: FlowContinue}
)

// Iterate evaluates a loop body. Break and continue raised anywhere inside it
// end the body early and are reported in the Outcome; every other error is
// returned unchanged.
func (in *Interp) Iterate(body []*Statement) (Outcome, error) {
	acc := make([]Value, 0, len(body))

	for _, st := range body {
		v, err := in.Eval(st)
		if err != nil {
			var sig *flowSignal
			if errors.As(err, &sig) {
				return Outcome{Value: bodyValue(acc), Flow: sig.flow}, nil
			}

			return Outcome{}, err
		}

		acc = append(acc, v)
	}

	return Outcome{Value: bodyValue(acc), Flow: FlowNext}, nil
}

func bodyValue(acc []Value) Value {
	if len(acc) == 1 {
		return acc[0]
	}

	return ListOf(acc...)
}

// escapedSignal turns a break or continue that left every loop into
// [ErrLoopControl].
func escapedSignal(err error) error {
	var sig *flowSignal
	if errors.As(err, &sig) {
		return ErrLoopControl.Wrap(sig)
	}

	return err
}
