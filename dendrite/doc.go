// Package dendrite implements the calling side of the RPC layer.
//
// A Dendrite signs every outbound call as one hotkey identity. Each
// instance draws a fresh session identifier at construction and a strictly
// increasing nonce per request, so receivers can refuse replays without
// coordinating with anyone.
//
// Apply never raises transport problems at the caller: every exit path
// produces a finalized envelope whose return code and message describe the
// outcome, including failures the server reported inside a 200 response.
//
//	d, err := dendrite.New(hotkey)
//	if err != nil {
//		return err
//	}
//	call := dendrite.NewTextCompletion([]string{"user"}, []string{"hello"}, 0)
//	env, err := d.Apply(ctx, target, call)
//	if err != nil {
//		return err
//	}
//	if env.Code() == protocol.CodeSuccess {
//		fmt.Println(call.Completion())
//	}
package dendrite
