package node

import (
	"context"

	"github.com/danmuck/partyline/internal/routing"
	"github.com/gin-gonic/gin"
)

// Node is anything the dispatcher can mount: an app with its own gin engine
// and URL resolution.
type Node interface {
	NodeID() string
	Kind() string
	HTTPRouter() *gin.Engine
	URLFor(ctx context.Context, endpoint string, values routing.Values) (string, error)
}
