package bridge

import "context"

type ControlBridge interface {
	Start(ctx context.Context)
	Stop()
}
