package interpreter

import (
	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/stream"
)

// execAssume records a stream's cross-year carry-over policy, read by the
// scenario runner's year roll-over.
func (ip *Interpreter) execAssume(key stream.UseKey, cmd program.Command) error {
	params, err := ip.Store.Params(key)
	if err != nil {
		return err
	}
	params.CarryOver[stream.Name(cmd.Stream)] = stream.CarryOverMode(cmd.Mode)
	return nil
}

// execDefine binds a name to an evaluated value for later `variable`
// references within the same substance's command list.
func (ip *Interpreter) execDefine(cmd program.Command) error {
	if cmd.Name == "" {
		return &simerr.InternalError{Reason: "define command carries no binding name"}
	}
	val, err := ip.evaluate(cmd.Value)
	if err != nil {
		return err
	}
	ip.Variables[cmd.Name] = val
	return nil
}

// execGet reads a stream, optionally converts it to an explicit unit, and
// optionally binds the result to a variable name for later reference. It
// never mutates stream state, so it triggers no propagation.
func (ip *Interpreter) execGet(key stream.UseKey, cmd program.Command) error {
	q, err := ip.Store.Get(key, stream.Name(cmd.Stream))
	if err != nil {
		return err
	}
	if cmd.Units != "" {
		conv, err := ip.converterFor(key)
		if err != nil {
			return err
		}
		converted, err := conv.Convert(q, cmd.Units)
		if err != nil {
			return err
		}
		q = converted
	}
	if cmd.Name != "" {
		ip.Variables[cmd.Name] = q
	}
	return nil
}
