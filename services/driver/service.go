package driver

import (
	"context"

	"airspeed-go/bus"
	"airspeed-go/errcode"
	"airspeed-go/types"
)

// Control verbs, addressed as driver/ctl/<verb>.
const (
	VerbStart  = "start"
	VerbStop   = "stop"
	VerbStatus = "status"
)

// CtlTopic is the request topic of a control verb.
func CtlTopic(verb string) bus.Topic { return bus.T("driver", "ctl", verb) }

// Serve answers control requests until ctx is cancelled, then stops every
// session.
func (m *Manager) Serve(ctx context.Context) {
	sub := m.conn.Subscribe(bus.T("driver", "ctl", bus.SingleWild))
	defer m.conn.Unsubscribe(sub)
	defer m.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			m.conn.Reply(msg, m.handle(msg), false)
		}
	}
}

func (m *Manager) handle(msg *bus.Message) types.DriverReply {
	verb, _ := msg.Topic[len(msg.Topic)-1].(string)
	switch verb {
	case VerbStart:
		p, ok := msg.Payload.(types.DriverStart)
		if !ok {
			return replyErr(errcode.InvalidParams, "start payload must be DriverStart")
		}
		n, err := m.Start(p)
		if err != nil {
			return replyFrom(err)
		}
		return types.DriverReply{OK: true, Instance: n}
	case VerbStop:
		var p types.DriverStop
		switch v := msg.Payload.(type) {
		case types.DriverStop:
			p = v
		case nil:
		default:
			return replyErr(errcode.InvalidParams, "stop payload must be DriverStop")
		}
		n, err := m.Stop(p.Driver)
		if err != nil {
			return replyFrom(err)
		}
		return types.DriverReply{OK: true, Stopped: n}
	case VerbStatus:
		return types.DriverReply{OK: true, Status: m.Status()}
	default:
		return replyErr(errcode.Unsupported, verb)
	}
}

func replyErr(c errcode.Code, msg string) types.DriverReply {
	return types.DriverReply{Code: string(c), Error: msg}
}

func replyFrom(err error) types.DriverReply {
	return types.DriverReply{Code: string(errcode.Of(err)), Error: err.Error()}
}
